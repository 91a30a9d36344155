package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/backend"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/currency"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

type Catalog interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Products(ctx context.Context, q backend.ProductQuery) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
}

type Accounts interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.Session, error)
	Profile(ctx context.Context, token string) (*domain.User, error)
}

type Orders interface {
	PlaceOrder(ctx context.Context, token string, req domain.OrderRequest) (*domain.OrderPlacement, error)
	Order(ctx context.Context, token string, id int64) (*domain.Order, error)
}

type RateSource interface {
	Fetch(ctx context.Context) *currency.RateTable
}

type CartService interface {
	GetCart(ctx context.Context, sessionID string) ([]domain.CartLineItem, cart.Summary)
	Lines(ctx context.Context, sessionID string) ([]domain.CartLineItem, error)
	AddItem(ctx context.Context, sessionID string, add cart.AddItem) (domain.CartLineItem, error)
	UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) error
	RemoveItem(ctx context.Context, sessionID, lineID string) error
	ClearCart(ctx context.Context, sessionID string) error
	Policy() cart.ShippingPolicy
}

// Pricer renders catalog and cart amounts in the shopper's display currency.
type Pricer struct {
	rates      RateSource
	resolver   *pricing.Resolver
	formatter  *currency.Formatter
	display    string
	uploadsURL string
}

func NewPricer(rates RateSource, formatter *currency.Formatter, display, uploadsURL string) *Pricer {
	if display == "" {
		display = currency.LocalCode
	}
	return &Pricer{
		rates:      rates,
		resolver:   pricing.NewResolver(formatter),
		formatter:  formatter,
		display:    strings.ToUpper(display),
		uploadsURL: uploadsURL,
	}
}

// displayCurrency is the ?currency= query value, or the configured default.
func (p *Pricer) displayCurrency(r *http.Request) string {
	if code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency"))); len(code) == 3 {
		return code
	}
	return p.display
}

func (p *Pricer) format(amount decimal.Decimal, code string) string {
	if p.formatter == nil {
		return currency.Format(amount, code)
	}
	return p.formatter.Format(amount, code)
}
