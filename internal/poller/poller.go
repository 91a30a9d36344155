package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic   = "order-events"
	DefaultGroupID = "storefront-cart"

	retryDelay = time.Second
)

// CartClearer empties the cart of one shopper session.
type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// OrderEvent is published by the backend whenever an order changes state.
type OrderEvent struct {
	SessionID string `json:"session_id"`
	OrderID   int64  `json:"order_id"`
	Status    string `json:"status"`
}

// Settled reports whether the payment for the order went through.
func (e OrderEvent) Settled() bool {
	switch strings.ToLower(e.Status) {
	case "paid", "completed":
		return true
	}
	return false
}

var errMalformed = errors.New("malformed order event")

type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	log    *zap.Logger
}

func NewPoller(carts CartClearer, cfg Config, log *zap.Logger) *Poller {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	if log == nil {
		log = zap.NewNop()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{
		carts:  carts,
		reader: reader,
		log:    log.With(zap.String("topic", cfg.Topic)),
	}
}

// Run consumes order events until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("order event poller started")
	for {
		m, err := p.reader.ReadMessage(ctx)
		if ctx.Err() != nil {
			p.log.Info("order event poller stopped")
			return
		}
		if err != nil {
			p.log.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		if err := p.handle(ctx, m.Value); err != nil {
			p.log.Warn("order event skipped",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}

func (p *Poller) Close() error {
	if err := p.reader.Close(); err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}

func (p *Poller) handle(ctx context.Context, value []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		metrics.OrderEvents.WithLabelValues("malformed").Inc()
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	ev.SessionID = strings.TrimSpace(ev.SessionID)
	if ev.SessionID == "" {
		metrics.OrderEvents.WithLabelValues("malformed").Inc()
		return fmt.Errorf("%w: missing session_id", errMalformed)
	}

	if !ev.Settled() {
		metrics.OrderEvents.WithLabelValues("ignored").Inc()
		return nil
	}

	if err := p.carts.ClearCart(ctx, ev.SessionID); err != nil {
		metrics.OrderEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("clear cart for order %d: %w", ev.OrderID, err)
	}
	metrics.OrderEvents.WithLabelValues("cleared").Inc()
	p.log.Info("cart cleared after payment",
		zap.Int64("order_id", ev.OrderID),
		zap.String("session_id", ev.SessionID))
	return nil
}
