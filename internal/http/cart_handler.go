package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/backend"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxLineQuantity = 99

type CartHandler struct {
	carts   CartService
	catalog Catalog
	pricer  *Pricer
	timeout time.Duration
}

func NewCartHandler(carts CartService, catalog Catalog, pricer *Pricer, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalog,
		pricer:  pricer,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	ID            string          `json:"id"`
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Size          string          `json:"size,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Currency      string          `json:"currency"`
	UnitPriceText string          `json:"unit_price_text"`
	LineTotalText string          `json:"line_total_text"`
	ImageURL      string          `json:"image_url,omitempty"`
}

type SummaryDTO struct {
	cart.Summary
	SubtotalText     string `json:"subtotal_text"`
	ShippingText     string `json:"shipping_text"`
	TotalText        string `json:"total_text"`
	FreeShippingFrom string `json:"free_shipping_from"`
}

type CartResponse struct {
	Items   []CartLineDTO `json:"items"`
	Count   int           `json:"count"`
	Summary SummaryDTO    `json:"summary"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, h.cartResponse(ctx, getSessionID(r.Context())))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondValidation(w, map[string]string{"product_id": "product_id must be positive"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > maxLineQuantity {
		respondValidation(w, map[string]string{"quantity": "quantity must be between 1 and 99"})
		return
	}
	req.Size = strings.TrimSpace(req.Size)

	product, err := h.catalog.Product(ctx, req.ProductID)
	if err != nil {
		handleBackendError(w, r, err, "")
		return
	}
	if len(product.Sizes) > 0 && req.Size == "" {
		respondValidation(w, map[string]string{"size": "please select a size"})
		return
	}

	display := h.pricer.displayCurrency(r)
	rt := h.pricer.rates.Fetch(ctx)
	price, code, err := h.pricer.resolver.UnitPrice(product.PriceInfo(), req.Size, rt, display)
	switch {
	case errors.Is(err, pricing.ErrUnknownVariant):
		respondValidation(w, map[string]string{"size": "this size is not available"})
		return
	case errors.Is(err, pricing.ErrNoPrice):
		respondValidation(w, map[string]string{"product_id": "this product has no price and cannot be added"})
		return
	case err != nil:
		requestLogger(r).Error("resolve unit price failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	sessionID := getSessionID(r.Context())
	_, err = h.carts.AddItem(ctx, sessionID, cart.AddItem{
		ProductID: product.ID,
		Variant:   req.Size,
		Quantity:  req.Quantity,
		UnitPrice: price,
		Currency:  code,
		Name:      product.Name,
		ImageURL:  h.imageFor(*product, req.Size),
	})
	if err != nil {
		respondUnavailable(w, "your cart could not be saved, please try again")
		return
	}

	respondJSON(w, http.StatusCreated, h.cartResponse(ctx, sessionID))
}

// PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID := chi.URLParam(r, "id")
	if lineID == "" {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "cart line id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxLineQuantity {
		respondValidation(w, map[string]string{"quantity": "quantity must be between 1 and 99"})
		return
	}

	sessionID := getSessionID(r.Context())
	if err := h.carts.UpdateQuantity(ctx, sessionID, lineID, req.Quantity); err != nil {
		respondUnavailable(w, "your cart could not be saved, please try again")
		return
	}
	respondJSON(w, http.StatusOK, h.cartResponse(ctx, sessionID))
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if err := h.carts.RemoveItem(ctx, sessionID, chi.URLParam(r, "id")); err != nil {
		respondUnavailable(w, "your cart could not be saved, please try again")
		return
	}
	respondJSON(w, http.StatusOK, h.cartResponse(ctx, sessionID))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if err := h.carts.ClearCart(ctx, sessionID); err != nil {
		respondUnavailable(w, "your cart could not be saved, please try again")
		return
	}
	respondJSON(w, http.StatusOK, h.cartResponse(ctx, sessionID))
}

func (h *CartHandler) cartResponse(ctx context.Context, sessionID string) CartResponse {
	items, sum := h.carts.GetCart(ctx, sessionID)

	resp := CartResponse{
		Items: make([]CartLineDTO, 0, len(items)),
		Summary: SummaryDTO{
			Summary:          sum,
			SubtotalText:     h.pricer.format(sum.Subtotal, sum.Currency),
			ShippingText:     h.pricer.format(sum.Shipping, sum.Currency),
			TotalText:        h.pricer.format(sum.Total, sum.Currency),
			FreeShippingFrom: h.pricer.format(h.carts.Policy().FreeThreshold, sum.Currency),
		},
	}
	for _, item := range items {
		resp.Count += item.Quantity
		resp.Items = append(resp.Items, CartLineDTO{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Name:          item.Name,
			Size:          item.Variant,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal(),
			Currency:      item.Currency,
			UnitPriceText: h.pricer.format(item.UnitPrice, item.Currency),
			LineTotalText: h.pricer.format(item.LineTotal(), item.Currency),
			ImageURL:      item.ImageURL,
		})
	}
	return resp
}

func (h *CartHandler) imageFor(p domain.Product, size string) string {
	if s, ok := p.Size(size); ok {
		for _, img := range s.SizeImages {
			if u := backend.ImageURL(img, h.pricer.uploadsURL); u != "" {
				return u
			}
		}
	}
	if images := backend.ParseImages(p.Images, h.pricer.uploadsURL); len(images) > 0 {
		return images[0]
	}
	return ""
}
