package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultVariant stands in for the variant part of a line id when the item has no size.
const DefaultVariant = "default"

type CartLineItem struct {
	ID        string
	ProductID int64
	Name      string
	Variant   string
	Quantity  int
	UnitPrice decimal.Decimal
	Currency  string
	ImageURL  string
}

// LineID derives the cart line id from a product and its selected variant.
func LineID(productID int64, variant string) string {
	if variant == "" {
		variant = DefaultVariant
	}
	return fmt.Sprintf("%d-%s", productID, variant)
}

// cartLineJSON is the persisted shape, shared with the browser cart format.
type cartLineJSON struct {
	ID        string          `json:"id"`
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Size      *string         `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

func (c CartLineItem) MarshalJSON() ([]byte, error) {
	out := cartLineJSON{
		ID:        c.ID,
		ProductID: c.ProductID,
		Name:      c.Name,
		Quantity:  c.Quantity,
		Price:     c.UnitPrice,
		Currency:  c.Currency,
		ImageURL:  c.ImageURL,
	}
	if c.Variant != "" {
		v := c.Variant
		out.Size = &v
	}
	return json.Marshal(out)
}

func (c *CartLineItem) UnmarshalJSON(data []byte) error {
	// order snapshots from the backend may carry numeric ids
	var in struct {
		cartLineJSON
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	id := strings.TrimSpace(string(in.ID))
	if unquoted, err := strconv.Unquote(id); err == nil {
		id = unquoted
	} else if id == "null" {
		id = ""
	}
	*c = CartLineItem{
		ID:        id,
		ProductID: in.ProductID,
		Name:      in.Name,
		Quantity:  in.Quantity,
		UnitPrice: in.Price,
		Currency:  in.Currency,
		ImageURL:  in.ImageURL,
	}
	if in.Size != nil {
		c.Variant = *in.Size
	}
	return nil
}

// LineTotal is the unit price times quantity, in the line's own currency.
func (c CartLineItem) LineTotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
