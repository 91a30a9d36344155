package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/cart"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Backend is a cart storage that holds a connection.
type Backend interface {
	cart.Storage
	Close() error
}

var (
	_ Backend = (*Memory)(nil)
	_ Backend = (*Redis)(nil)
	_ Backend = (*Mongo)(nil)
	_ Backend = (*SQL)(nil)
)

type Config struct {
	Driver string
	// TTL expires idle carts in redis and mongo; zero keeps them forever.
	TTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string

	SQLitePath  string
	PostgresDSN string
}

// Open connects the storage selected by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil

	case DriverRedis:
		client, err := ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, cfg.TTL), nil

	case DriverMongo:
		db, err := ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		store := NewMongo(db, cfg.TTL)
		if err := store.CreateIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case DriverSQLite, DriverPostgres:
		dsn := cfg.SQLitePath
		if cfg.Driver == DriverPostgres {
			dsn = cfg.PostgresDSN
		}
		store, err := NewSQL(cfg.Driver, dsn)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
