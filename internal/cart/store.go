package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultKey is the storage key of a single-shopper cart.
const DefaultKey = "shoppingCart"

const emptyCart = "[]"

// ErrReadFailed is returned by mutations when the stored cart could not be
// read. The stored value is left untouched.
var ErrReadFailed = errors.New("cart read failed")

// AddItem describes a product being put into the cart. Price and currency are
// the ones the shopper saw when adding.
type AddItem struct {
	ProductID int64
	Variant   string
	Quantity  int
	UnitPrice decimal.Decimal
	Currency  string
	Name      string
	ImageURL  string
}

// Store is a persisted, ordered collection of cart lines kept under one storage
// key. State is read from storage on first access and every mutation is written
// back before the call returns, so writes reach storage in mutation order.
type Store struct {
	mu      sync.Mutex
	storage Storage
	key     string
	log     *zap.Logger

	loaded  bool
	readErr error
	items   []domain.CartLineItem
}

func NewStore(storage Storage, key string, log *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{storage: storage, key: key, log: log}
}

func (s *Store) Key() string {
	return s.key
}

// Load re-reads the persisted cart. It never fails: a missing, corrupt or
// non-array value is replaced with an empty cart, and a read error yields an
// empty cart without touching storage.
func (s *Store) Load(ctx context.Context) []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load(ctx)
	return s.snapshot()
}

// Items returns the current lines, loading them on first access.
func (s *Store) Items(ctx context.Context) []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.snapshot()
}

// Lines is Items that reports a failed storage read instead of hiding it.
func (s *Store) Lines(ctx context.Context) ([]domain.CartLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.snapshot(), nil
}

// AddOrIncrement appends a new line or, when the product/variant is already in
// the cart, adds to its quantity. An existing line keeps its original price.
func (s *Store) AddOrIncrement(ctx context.Context, add AddItem) (domain.CartLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if s.readErr != nil {
		return domain.CartLineItem{}, s.readErr
	}

	qty := add.Quantity
	if qty < 1 {
		qty = 1
	}
	id := domain.LineID(add.ProductID, add.Variant)

	var line domain.CartLineItem
	if i := s.index(id); i >= 0 {
		s.items[i].Quantity += qty
		line = s.items[i]
	} else {
		line = domain.CartLineItem{
			ID:        id,
			ProductID: add.ProductID,
			Name:      add.Name,
			Variant:   add.Variant,
			Quantity:  qty,
			UnitPrice: add.UnitPrice,
			Currency:  add.Currency,
			ImageURL:  add.ImageURL,
		}
		s.items = append(s.items, line)
	}

	return line, s.persist(ctx)
}

// SetQuantity sets an absolute quantity, floored at 1. An unknown id is not an
// error; the cart is persisted either way.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if s.readErr != nil {
		return s.readErr
	}

	if quantity < 1 {
		quantity = 1
	}
	if i := s.index(id); i >= 0 {
		s.items[i].Quantity = quantity
	} else {
		s.log.Debug("set quantity on missing cart line", zap.String("key", s.key), zap.String("line_id", id))
	}
	return s.persist(ctx)
}

// Remove deletes the line with id if present.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if s.readErr != nil {
		return s.readErr
	}

	if i := s.index(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	return s.persist(ctx)
}

// Clear empties the cart, e.g. after an order has been placed.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.CartLineItem{}
	s.loaded = true
	s.readErr = nil
	return s.persist(ctx)
}

func (s *Store) ensureLoaded(ctx context.Context) {
	if !s.loaded {
		s.load(ctx)
	}
}

func (s *Store) load(ctx context.Context) {
	s.items = []domain.CartLineItem{}
	s.loaded = true
	s.readErr = nil

	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		// the stored cart may be fine once storage recovers; mutations refuse
		// to write over it
		s.readErr = fmt.Errorf("%w: %w", ErrReadFailed, err)
		s.log.Warn("cart read failed, using empty cart", zap.String("key", s.key), zap.Error(err))
		return
	}
	if !ok {
		s.reset(ctx, "missing")
		return
	}

	items, err := decode(raw)
	if err != nil {
		s.log.Warn("invalid cart data in storage, resetting", zap.String("key", s.key), zap.Error(err))
		s.reset(ctx, "corrupt")
		return
	}
	s.items = items
}

func (s *Store) reset(ctx context.Context, reason string) {
	if err := s.storage.Set(ctx, s.key, emptyCart); err != nil {
		s.log.Warn("cart reset failed", zap.String("key", s.key), zap.String("reason", reason), zap.Error(err))
	}
}

func (s *Store) persist(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("persist cart failed: %w", err)
	}
	return nil
}

func (s *Store) index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshot() []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

func decode(raw string) ([]domain.CartLineItem, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("cart data is not an array")
	}
	var items []domain.CartLineItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return items, nil
}
