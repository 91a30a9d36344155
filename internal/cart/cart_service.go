package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/metrics"
	"go.uber.org/zap"
)

const lockStripes = 64

// Service serves many shoppers' carts from one storage backend. Each session
// gets its own storage key; operations on the same session are serialized.
type Service struct {
	storage Storage
	prefix  string
	policy  ShippingPolicy
	log     *zap.Logger
	locks   [lockStripes]sync.Mutex
}

func NewService(storage Storage, prefix string, policy ShippingPolicy, log *zap.Logger) *Service {
	if prefix == "" {
		prefix = DefaultKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		storage: storage,
		prefix:  prefix,
		policy:  policy,
		log:     log,
	}
}

func (s *Service) Key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, sessionID)
}

func (s *Service) Policy() ShippingPolicy {
	return s.policy
}

func (s *Service) GetCart(ctx context.Context, sessionID string) ([]domain.CartLineItem, Summary) {
	var items []domain.CartLineItem
	s.withStore(sessionID, func(st *Store) {
		items = st.Load(ctx)
	})

	sum := Summarize(items, s.policy)
	if sum.MixedCurrency {
		metrics.MixedCurrencyCarts.Inc()
		s.log.Warn("cart holds more than one currency, subtotal is not converted",
			zap.String("session_id", sessionID), zap.Int("lines", len(items)))
	}
	return items, sum
}

// Lines returns the session's cart lines, or ErrReadFailed when storage could
// not be read.
func (s *Service) Lines(ctx context.Context, sessionID string) ([]domain.CartLineItem, error) {
	var (
		items []domain.CartLineItem
		err   error
	)
	s.withStore(sessionID, func(st *Store) {
		items, err = st.Lines(ctx)
	})
	return items, err
}

func (s *Service) AddItem(ctx context.Context, sessionID string, add AddItem) (domain.CartLineItem, error) {
	var (
		line domain.CartLineItem
		err  error
	)
	s.withStore(sessionID, func(st *Store) {
		line, err = st.AddOrIncrement(ctx, add)
	})
	s.record("add", sessionID, err)
	return line, err
}

func (s *Service) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) error {
	var err error
	s.withStore(sessionID, func(st *Store) {
		err = st.SetQuantity(ctx, lineID, quantity)
	})
	s.record("set_quantity", sessionID, err)
	return err
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, lineID string) error {
	var err error
	s.withStore(sessionID, func(st *Store) {
		err = st.Remove(ctx, lineID)
	})
	s.record("remove", sessionID, err)
	return err
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	var err error
	s.withStore(sessionID, func(st *Store) {
		err = st.Clear(ctx)
	})
	s.record("clear", sessionID, err)
	return err
}

func (s *Service) withStore(sessionID string, fn func(st *Store)) {
	mu := &s.locks[xxhash.Sum64String(sessionID)%lockStripes]
	mu.Lock()
	defer mu.Unlock()

	fn(NewStore(s.storage, s.Key(sessionID), s.log))
}

func (s *Service) record(op, sessionID string, err error) {
	metrics.CartMutations.WithLabelValues(op, metrics.Result(err)).Inc()
	if err != nil {
		s.log.Error("cart mutation failed", zap.String("op", op), zap.String("session_id", sessionID), zap.Error(err))
	}
}
