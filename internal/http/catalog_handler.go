package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/backend"
	"github.com/fjod/storefront/internal/currency"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
)

const (
	pageSizeRegular = 12
	pageSizeCompact = 6
)

type CatalogHandler struct {
	catalog Catalog
	pricer  *Pricer
	timeout time.Duration
}

func NewCatalogHandler(catalog Catalog, pricer *Pricer, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		pricer:  pricer,
		timeout: timeout,
	}
}

type SizeDTO struct {
	Size   string          `json:"size"`
	Price  pricing.Display `json:"price"`
	Images []string        `json:"images,omitempty"`
}

type ProductDTO struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Brand           string          `json:"brand,omitempty"`
	CategoryID      int64           `json:"category_id"`
	SubcategoryID   *int64          `json:"subcategory_id,omitempty"`
	DefaultCurrency string          `json:"default_currency"`
	IsFeatured      bool            `json:"is_featured"`
	IsNewArrival    bool            `json:"is_new_arrival"`
	Images          []string        `json:"images"`
	Price           pricing.Display `json:"price"`
	Sizes           []SizeDTO       `json:"sizes"`
}

type ProductsResponse struct {
	Products        []ProductDTO `json:"products"`
	DisplayCurrency string       `json:"display_currency"`
	RatesAvailable  bool         `json:"rates_available"`
}

type ProductResponse struct {
	Product         ProductDTO `json:"product"`
	DisplayCurrency string     `json:"display_currency"`
	RatesAvailable  bool       `json:"rates_available"`
}

type RatesResponse struct {
	Base  string            `json:"base"`
	Rates map[string]string `json:"rates"`
}

// GET /api/v1/rates
func (h *CatalogHandler) Rates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rt := h.pricer.rates.Fetch(ctx)
	if rt == nil {
		respondUnavailable(w, "exchange rates are unavailable, prices are shown in their original currency")
		return
	}

	rates := make(map[string]string)
	for code, rate := range rt.Rates() {
		rates[code] = rate.String()
	}
	respondJSON(w, http.StatusOK, RatesResponse{Base: rt.Base(), Rates: rates})
}

// GET /api/v1/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		handleBackendError(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

// GET /api/v1/products
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, fields := parseProductQuery(r)
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	products, err := h.catalog.Products(ctx, q)
	if err != nil {
		handleBackendError(w, r, err, "")
		return
	}

	display := h.pricer.displayCurrency(r)
	rt := h.pricer.rates.Fetch(ctx)

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, h.toDTO(p, rt, display))
	}
	respondJSON(w, http.StatusOK, ProductsResponse{
		Products:        dtos,
		DisplayCurrency: display,
		RatesAvailable:  rt != nil,
	})
}

// GET /api/v1/products/{id}
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id must be a positive integer")
		return
	}

	p, err := h.catalog.Product(ctx, id)
	if err != nil {
		handleBackendError(w, r, err, "")
		return
	}

	display := h.pricer.displayCurrency(r)
	rt := h.pricer.rates.Fetch(ctx)
	respondJSON(w, http.StatusOK, ProductResponse{
		Product:         h.toDTO(*p, rt, display),
		DisplayCurrency: display,
		RatesAvailable:  rt != nil,
	})
}

func (h *CatalogHandler) toDTO(p domain.Product, rt *currency.RateTable, display string) ProductDTO {
	info := p.PriceInfo()
	dto := ProductDTO{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Brand:           p.Brand,
		CategoryID:      p.CategoryID,
		SubcategoryID:   p.SubcategoryID,
		DefaultCurrency: p.DefaultCurrency,
		IsFeatured:      p.IsFeatured,
		IsNewArrival:    p.IsNewArrival,
		Images:          backend.ParseImages(p.Images, h.pricer.uploadsURL),
		Price:           h.pricer.resolver.Resolve(info, rt, display),
		Sizes:           make([]SizeDTO, 0, len(p.Sizes)),
	}

	for _, s := range p.Sizes {
		single := domain.PriceInfo{
			DefaultCurrency: info.DefaultCurrency,
			Sizes:           []domain.SizeVariant{{Label: s.Size, Price: s.Price}},
		}
		dto.Sizes = append(dto.Sizes, SizeDTO{
			Size:   s.Size,
			Price:  h.pricer.resolver.Resolve(single, rt, display),
			Images: sizeImages(s.SizeImages, h.pricer.uploadsURL),
		})
	}
	return dto
}

func sizeImages(paths []string, uploadsURL string) []string {
	var out []string
	for _, p := range paths {
		if u := backend.ImageURL(p, uploadsURL); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func parseProductQuery(r *http.Request) (backend.ProductQuery, map[string]string) {
	fields := map[string]string{}
	q := backend.ProductQuery{Limit: pageSizeRegular}
	if isCompact(r.Context()) {
		q.Limit = pageSizeCompact
	}

	params := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int64
	}{
		{"category_id", &q.CategoryID},
		{"subcategory_id", &q.SubcategoryID},
		{"exclude_id", &q.ExcludeID},
	} {
		raw := params.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			fields[p.name] = "must be a positive integer"
			continue
		}
		*p.dst = v
	}

	if raw := params.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			fields["limit"] = "must be between 1 and 100"
		} else {
			q.Limit = v
		}
	}
	return q, fields
}
