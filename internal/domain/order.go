package domain

import "github.com/shopspring/decimal"

type PaymentMethod string

const (
	PaymentChapa      PaymentMethod = "chapa"
	PaymentScreenshot PaymentMethod = "screenshot"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentChapa || m == PaymentScreenshot
}

type CheckoutDetails struct {
	Phone   string `json:"phone"`
	City    string `json:"city"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// Screenshot is an uploaded proof-of-payment image.
type Screenshot struct {
	Filename    string
	ContentType string
	Data        []byte
}

type OrderRequest struct {
	// SessionID identifies the cart the order was placed from.
	SessionID  string
	Details    CheckoutDetails
	Items      []CartLineItem
	Method     PaymentMethod
	Screenshot *Screenshot
}

// OrderPlacement is the backend's answer to an order request: an order id for
// screenshot payments, a hosted checkout URL for chapa.
type OrderPlacement struct {
	OrderID     int64  `json:"order_id,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

type Order struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"userId"`
	OrderPhone            string          `json:"orderPhone"`
	OrderCity             string          `json:"orderCity"`
	OrderAddress          string          `json:"orderAddress"`
	CartItemsSnapshot     []CartLineItem  `json:"cartItemsSnapshot"`
	SubtotalAmount        decimal.Decimal `json:"subtotalAmount"`
	ShippingAmount        decimal.Decimal `json:"shippingAmount"`
	TotalAmount           decimal.Decimal `json:"totalAmount"`
	Currency              string          `json:"currency"`
	OrderStatus           string          `json:"orderStatus"`
	PaymentMethod         PaymentMethod   `json:"paymentMethod"`
	PaymentStatus         string          `json:"paymentStatus"`
	ChapaTxRef            string          `json:"chapaTxRef,omitempty"`
	PaymentScreenshotPath string          `json:"paymentScreenshotPath,omitempty"`
	CreatedAt             string          `json:"createdAt"`
	UpdatedAt             string          `json:"updatedAt,omitempty"`
}

// AwaitingVerification reports whether a screenshot payment still needs manual review.
func (o Order) AwaitingVerification() bool {
	return o.PaymentMethod == PaymentScreenshot && o.PaymentStatus == "pending_verification"
}
