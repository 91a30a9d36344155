package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug,omitempty"`
	ParentID      *int64     `json:"parent_id,omitempty"`
	Subcategories []Category `json:"subcategories,omitempty"`
}

type ProductSize struct {
	ID         int64    `json:"id"`
	Size       string   `json:"size"`
	Price      string   `json:"price"`
	SizeImages []string `json:"size_images,omitempty"`
}

type Product struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	CategoryID      int64            `json:"category_id"`
	SubcategoryID   *int64           `json:"subcategory_id,omitempty"`
	Brand           string           `json:"brand,omitempty"`
	DefaultCurrency string           `json:"default_currency"`
	IsFeatured      bool             `json:"is_featured,omitempty"`
	IsNewArrival    bool             `json:"is_new_arrival,omitempty"`
	BasePrice       string           `json:"base_price"`
	Images          *string          `json:"images,omitempty"`
	Category        *Category        `json:"category,omitempty"`
	Subcategory     *Category        `json:"subcategory,omitempty"`
	Sizes           []ProductSize    `json:"sizes,omitempty"`
	CalculatedPrice *decimal.Decimal `json:"calculated_price,omitempty"`
	CreatedAt       string           `json:"created_at,omitempty"`
	UpdatedAt       string           `json:"updated_at,omitempty"`
}

// SizeVariant is one purchasable size and its price as sent by the catalog.
type SizeVariant struct {
	Label string
	Price string
}

// PriceInfo is the read-only slice of a catalog item the price resolver needs.
type PriceInfo struct {
	BasePrice       string
	DefaultCurrency string
	CalculatedPrice *decimal.Decimal
	Sizes           []SizeVariant
}

func (p Product) PriceInfo() PriceInfo {
	sizes := make([]SizeVariant, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		sizes = append(sizes, SizeVariant{Label: s.Size, Price: s.Price})
	}
	return PriceInfo{
		BasePrice:       p.BasePrice,
		DefaultCurrency: p.DefaultCurrency,
		CalculatedPrice: p.CalculatedPrice,
		Sizes:           sizes,
	}
}

// Size returns the size entry with the given label.
func (p Product) Size(label string) (ProductSize, bool) {
	for _, s := range p.Sizes {
		if s.Size == label {
			return s, true
		}
	}
	return ProductSize{}, false
}
