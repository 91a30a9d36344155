package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/backend"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/currency"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/poller"
	"github.com/fjod/storefront/internal/rates"
	"github.com/fjod/storefront/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Config{
		Driver:        cfg.StorageDriver,
		TTL:           cfg.CartTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		SQLitePath:    cfg.SQLitePath,
		PostgresDSN:   cfg.PostgresDSN,
	})
	if err != nil {
		zlog.Fatal("failed to open cart storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer store.Close()
	zlog.Info("cart storage ready", zap.String("driver", cfg.StorageDriver))

	client := backend.NewClient(backend.Config{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.BackendTimeout,
		UploadsURL: cfg.UploadsURL,
	}, zlog)

	carts := cart.NewService(store, cfg.CartKeyPrefix, cart.ShippingPolicy{
		FreeThreshold:    cfg.FreeShippingThreshold,
		FlatFee:          cfg.ShippingFee,
		FallbackCurrency: cfg.DisplayCurrency,
	}, zlog)

	formatter := currency.NewFormatter(currency.LocalCode, language.Make(cfg.Locale))
	pricer := h.NewPricer(rates.NewProvider(client, cfg.RateBase, zlog), formatter, cfg.DisplayCurrency, client.UploadsURL())

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		AllowedOrigins:     cfg.AllowedOrigins,
	}, h.Handlers{
		Catalog:  h.NewCatalogHandler(client, pricer, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(carts, client, pricer, cfg.RequestTimeout),
		Auth:     h.NewAuthHandler(client, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(client, carts, cfg.RequestTimeout, cfg.MaxRequestBodySize),
		Orders:   h.NewOrdersHandler(client, pricer, cfg.RequestTimeout),
	}, zlog)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(carts, poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, zlog)
		defer func() {
			if err := p.Close(); err != nil {
				zlog.Warn("failed to close poller", zap.Error(err))
			}
		}()
		go p.Run(pollCtx)
	} else {
		zlog.Info("KAFKA_BROKERS not set, order event poller disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server...")
	stopPolling()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exited")
}
