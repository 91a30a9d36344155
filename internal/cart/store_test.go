package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStorage struct {
	m      sync.RWMutex
	data   map[string]string
	writes []string
	getErr error
	setErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{data: map[string]string{}}
}

func (m *mockStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockStorage) Set(_ context.Context, key, value string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.writes = append(m.writes, value)
	return nil
}

func (m *mockStorage) raw(key string) string {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.data[key]
}

func (m *mockStorage) writeCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return len(m.writes)
}

func perfume(productID int64, variant string, qty int, price string) AddItem {
	return AddItem{
		ProductID: productID,
		Variant:   variant,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		Currency:  "ETB",
		Name:      fmt.Sprintf("Perfume %d", productID),
	}
}

func TestLoad_MissingKeyWritesEmptyArray(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)

	items := store.Load(context.Background())
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Equal(t, "[]", storage.raw(DefaultKey))
}

func TestLoad_CorruptDataResetsStorage(t *testing.T) {
	for _, raw := range []string{"{not valid json", `{"id":"1-default"}`, "null", "42", ""} {
		storage := newMockStorage()
		storage.data[DefaultKey] = raw
		store := NewStore(storage, DefaultKey, nil)

		items := store.Load(context.Background())
		assert.Empty(t, items, "raw %q", raw)
		assert.Equal(t, "[]", storage.raw(DefaultKey), "raw %q", raw)
	}
}

func TestLoad_ReadErrorDegradesWithoutOverwrite(t *testing.T) {
	storage := newMockStorage()
	storage.data[DefaultKey] = `[{"id":"1-default","productId":1,"name":"x","size":null,"quantity":1,"price":"5","currency":"ETB"}]`
	storage.getErr = fmt.Errorf("storage offline")
	store := NewStore(storage, DefaultKey, nil)

	items := store.Load(context.Background())
	assert.Empty(t, items)
	assert.Equal(t, 0, storage.writeCount())
}

func TestMutation_ReadErrorKeepsStoredCart(t *testing.T) {
	ctx := context.Background()
	saved := `[{"id":"1-default","productId":1,"name":"x","size":null,"quantity":3,"price":"5","currency":"ETB"}]`

	tests := []struct {
		name   string
		mutate func(st *Store) error
	}{
		{name: "add", mutate: func(st *Store) error {
			_, err := st.AddOrIncrement(ctx, perfume(2, "", 1, "10"))
			return err
		}},
		{name: "set quantity", mutate: func(st *Store) error { return st.SetQuantity(ctx, "1-default", 1) }},
		{name: "remove", mutate: func(st *Store) error { return st.Remove(ctx, "1-default") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newMockStorage()
			storage.data[DefaultKey] = saved
			storage.getErr = fmt.Errorf("storage offline")
			store := NewStore(storage, DefaultKey, nil)

			err := tt.mutate(store)
			require.ErrorIs(t, err, ErrReadFailed)
			assert.ErrorContains(t, err, "storage offline")
			assert.Equal(t, 0, storage.writeCount())
			assert.Equal(t, saved, storage.raw(DefaultKey))
		})
	}
}

func TestLines_ReportsReadError(t *testing.T) {
	storage := newMockStorage()
	storage.getErr = fmt.Errorf("storage offline")
	store := NewStore(storage, DefaultKey, nil)

	items, err := store.Lines(context.Background())
	require.ErrorIs(t, err, ErrReadFailed)
	assert.Nil(t, items)

	storage.getErr = nil
	items = store.Load(context.Background())
	assert.Empty(t, items)
	items, err = store.Lines(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLoad_ReadsBrowserFormat(t *testing.T) {
	storage := newMockStorage()
	storage.data[DefaultKey] = `[
		{"id":"7-50ml","productId":7,"name":"Oud","size":"50ml","quantity":2,"price":1250.5,"currency":"ETB","imageUrl":"http://x/uploads/a.jpg"},
		{"id":"9-default","productId":9,"name":"Musk","size":null,"quantity":1,"price":"30","currency":"ETB"}
	]`
	store := NewStore(storage, DefaultKey, nil)

	items := store.Load(context.Background())
	require.Len(t, items, 2)
	assert.Equal(t, "50ml", items[0].Variant)
	assert.Equal(t, "1250.5", items[0].UnitPrice.String())
	assert.Equal(t, "http://x/uploads/a.jpg", items[0].ImageURL)
	assert.Equal(t, "", items[1].Variant)
	assert.Equal(t, 0, storage.writeCount())
}

func TestAddOrIncrement_NewLine(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	line, err := store.AddOrIncrement(ctx, perfume(7, "50ml", 2, "100"))
	require.NoError(t, err)
	assert.Equal(t, "7-50ml", line.ID)
	assert.Equal(t, 2, line.Quantity)

	line, err = store.AddOrIncrement(ctx, perfume(9, "", 1, "30"))
	require.NoError(t, err)
	assert.Equal(t, "9-default", line.ID)

	items := store.Items(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, "7-50ml", items[0].ID)
	assert.Equal(t, "9-default", items[1].ID)
}

func TestAddOrIncrement_SameVariantAddsQuantityAndKeepsFirstPrice(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	_, err := store.AddOrIncrement(ctx, perfume(7, "50ml", 2, "100"))
	require.NoError(t, err)
	line, err := store.AddOrIncrement(ctx, perfume(7, "50ml", 3, "120"))
	require.NoError(t, err)

	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, "100", line.UnitPrice.String())

	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
}

func TestAddOrIncrement_DifferentVariantsAreSeparateLines(t *testing.T) {
	store := NewStore(newMockStorage(), DefaultKey, nil)
	ctx := context.Background()

	_, err := store.AddOrIncrement(ctx, perfume(7, "50ml", 1, "100"))
	require.NoError(t, err)
	_, err = store.AddOrIncrement(ctx, perfume(7, "100ml", 1, "180"))
	require.NoError(t, err)

	assert.Len(t, store.Items(ctx), 2)
}

func TestAddOrIncrement_PersistsEveryMutation(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	_, err := store.AddOrIncrement(ctx, perfume(1, "", 1, "10"))
	require.NoError(t, err)

	var persisted []domain.CartLineItem
	require.NoError(t, json.Unmarshal([]byte(storage.raw(DefaultKey)), &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, "1-default", persisted[0].ID)

	// reload through a fresh store
	again := NewStore(storage, DefaultKey, nil).Load(ctx)
	assert.Equal(t, persisted, again)
}

func TestSetQuantity_FloorsAtOne(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	line, err := store.AddOrIncrement(ctx, perfume(3, "", 4, "10"))
	require.NoError(t, err)

	require.NoError(t, store.SetQuantity(ctx, line.ID, 0))
	assert.Equal(t, 1, store.Items(ctx)[0].Quantity)

	require.NoError(t, store.SetQuantity(ctx, line.ID, -5))
	assert.Equal(t, 1, store.Items(ctx)[0].Quantity)

	require.NoError(t, store.SetQuantity(ctx, line.ID, 8))
	assert.Equal(t, 8, NewStore(storage, DefaultKey, nil).Load(ctx)[0].Quantity)
}

func TestSetQuantity_UnknownIDStillPersists(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	_, err := store.AddOrIncrement(ctx, perfume(3, "", 1, "10"))
	require.NoError(t, err)
	before := storage.writeCount()

	require.NoError(t, store.SetQuantity(ctx, "404-default", 3))
	assert.Equal(t, before+1, storage.writeCount())
	assert.Equal(t, 1, store.Items(ctx)[0].Quantity)
}

func TestRemove_Idempotent(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	a, _ := store.AddOrIncrement(ctx, perfume(1, "", 1, "10"))
	b, _ := store.AddOrIncrement(ctx, perfume(2, "", 1, "20"))

	require.NoError(t, store.Remove(ctx, a.ID))
	require.NoError(t, store.Remove(ctx, a.ID))

	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestClear_ThenLoadIsEmpty(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	_, _ = store.AddOrIncrement(ctx, perfume(1, "", 1, "10"))
	require.NoError(t, store.Clear(ctx))

	assert.Equal(t, "[]", storage.raw(DefaultKey))
	assert.Empty(t, store.Load(ctx))
	assert.Empty(t, NewStore(storage, DefaultKey, nil).Load(ctx))
}

func TestMutation_StorageErrorIsReturned(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()
	store.Load(ctx)

	storage.setErr = fmt.Errorf("disk full")
	_, err := store.AddOrIncrement(ctx, perfume(1, "", 1, "10"))
	require.ErrorContains(t, err, "disk full")

	// in-memory state keeps the mutation
	assert.Len(t, store.Items(ctx), 1)
}

func TestStore_ConcurrentAddsAreOrderedAndComplete(t *testing.T) {
	storage := newMockStorage()
	store := NewStore(storage, DefaultKey, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.AddOrIncrement(ctx, perfume(1, "", 1, "10"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Items(ctx)[0].Quantity)

	var last []domain.CartLineItem
	require.NoError(t, json.Unmarshal([]byte(storage.raw(DefaultKey)), &last))
	assert.Equal(t, 50, last[0].Quantity)
}
