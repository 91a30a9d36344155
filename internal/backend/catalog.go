package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fjod/storefront/internal/domain"
)

// ProductQuery filters the product list. Zero fields are not sent.
type ProductQuery struct {
	CategoryID    int64
	SubcategoryID int64
	Limit         int
	ExcludeID     int64
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.CategoryID > 0 {
		v.Set("categoryId", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.SubcategoryID > 0 {
		v.Set("subcategoryId", strconv.FormatInt(q.SubcategoryID, 10))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.ExcludeID > 0 {
		v.Set("excludeId", strconv.FormatInt(q.ExcludeID, 10))
	}
	return v
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.getJSON(ctx, "categories", "/api/categories", nil, "", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Category{}
	}
	return out, nil
}

func (c *Client) Products(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	var out struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.getJSON(ctx, "products", "/api/products", q.values(), "", &out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		out.Products = []domain.Product{}
	}
	return out.Products, nil
}

func (c *Client) Product(ctx context.Context, id int64) (*domain.Product, error) {
	var out struct {
		Product *domain.Product `json:"product"`
	}
	if err := c.getJSON(ctx, "product", fmt.Sprintf("/api/products/%d", id), nil, "", &out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, ErrNotFound
	}
	return out.Product, nil
}

// ExchangeRates lists the USD-relative rates.
func (c *Client) ExchangeRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	var out []domain.ExchangeRate
	if err := c.getJSON(ctx, "exchange_rates", "/api/exchange-rates", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}
