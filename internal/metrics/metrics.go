package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	MixedCurrencyCarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_mixed_currency_total",
			Help: "Cart summaries computed over lines in more than one currency",
		},
	)

	RateFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rate_fetches_total",
			Help: "Exchange rate table fetches by result",
		},
		[]string{"result"},
	)

	NativePriceFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_native_price_fallbacks_total",
			Help: "Prices shown in the item's own currency because conversion was unavailable",
		},
	)

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_backend_requests_total",
			Help: "Backend API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	OrderEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_events_total",
			Help: "Order events consumed by the cart poller",
		},
		[]string{"result"},
	)
)

// Result maps an error to a metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
