package rates

import (
	"context"

	"github.com/fjod/storefront/internal/currency"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source lists the exchange rates published by the backend.
type Source interface {
	ExchangeRates(ctx context.Context) ([]domain.ExchangeRate, error)
}

// Provider fetches a fresh rate table per request. Concurrent fetches share
// one backend call; nothing is cached between calls.
type Provider struct {
	source Source
	base   string
	log    *zap.Logger
	sf     singleflight.Group
}

func NewProvider(source Source, base string, log *zap.Logger) *Provider {
	if base == "" {
		base = currency.DefaultBase
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{source: source, base: base, log: log}
}

// Fetch returns the current rate table, or nil when rates could not be loaded.
// Callers treat nil as "conversion unavailable".
func (p *Provider) Fetch(ctx context.Context) *currency.RateTable {
	v, err, shared := p.sf.Do("rates", func() (interface{}, error) {
		list, err := p.source.ExchangeRates(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return currency.FromExchangeRates(p.base, list), nil
	})
	if err != nil {
		metrics.RateFetches.WithLabelValues("error").Inc()
		p.log.Warn("exchange rates unavailable", zap.Error(err), zap.Bool("shared", shared))
		return nil
	}
	if ctx.Err() != nil {
		// superseded while waiting
		metrics.RateFetches.WithLabelValues("canceled").Inc()
		return nil
	}

	metrics.RateFetches.WithLabelValues("ok").Inc()
	return v.(*currency.RateTable)
}
