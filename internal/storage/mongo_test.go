package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
)

func setupTestMongo(t *testing.T) (*Mongo, func()) {
	if testing.Short() {
		t.Skip("skipping mongo container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongo(db, 24*time.Hour)
	require.NoError(t, store.CreateIndexes(ctx))

	cleanup := func() {
		_ = store.Close()
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestMongo_Storage(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "nonexistent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k", "[]"))
		require.NoError(t, store.Set(ctx, "k", "[1]"))

		v, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "[1]", v)

		n, err := store.collection.CountDocuments(ctx, bson.M{"_id": "k"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("ttl index", func(t *testing.T) {
		cursor, err := store.collection.Indexes().List(ctx)
		require.NoError(t, err)
		var indexes []bson.M
		require.NoError(t, cursor.All(ctx, &indexes))

		found := false
		for _, idx := range indexes {
			if _, ok := idx["expireAfterSeconds"]; ok {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("cart round trip", func(t *testing.T) {
		exerciseBackend(t, store)
	})
}
