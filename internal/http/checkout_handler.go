package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"go.uber.org/zap"
)

const checkoutPath = "/checkout"

type CheckoutHandler struct {
	orders      Orders
	carts       CartService
	timeout     time.Duration
	maxBodySize int64
}

func NewCheckoutHandler(orders Orders, carts CartService, timeout time.Duration, maxBodySize int64) *CheckoutHandler {
	return &CheckoutHandler{
		orders:      orders,
		carts:       carts,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type CheckoutRequestDTO struct {
	Phone         string `json:"phone"`
	City          string `json:"city"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
	PaymentMethod string `json:"payment_method"`
}

type CheckoutResponseDTO struct {
	OrderID     int64  `json:"order_id,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	Redirect    string `json:"redirect"`
}

// POST /api/v1/checkout
//
// Accepts JSON or, for screenshot payments, multipart form data with the image
// in the payment_screenshot field.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := getToken(r.Context())
	if token == "" {
		respondUnauthenticated(w, checkoutPath)
		return
	}

	req, shot, err := h.parse(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sessionID := getSessionID(r.Context())
	items, err := h.carts.Lines(ctx, sessionID)
	if err != nil {
		requestLogger(r).Warn("cart unavailable at checkout", zap.Error(err))
		respondUnavailable(w, "your cart could not be loaded, please try again")
		return
	}

	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	if fields := validateCheckout(req, method, shot, len(items)); len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	placed, err := h.orders.PlaceOrder(ctx, token, domain.OrderRequest{
		SessionID: sessionID,
		Details: domain.CheckoutDetails{
			Phone:   strings.TrimSpace(req.Phone),
			City:    strings.TrimSpace(req.City),
			Address: strings.TrimSpace(req.Address),
			Notes:   strings.TrimSpace(req.Notes),
		},
		Items:      items,
		Method:     method,
		Screenshot: shot,
	})
	if err != nil {
		handleBackendError(w, r, err, checkoutPath)
		return
	}

	if method == domain.PaymentChapa {
		// cleared by the order-event poller once chapa confirms payment
		respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
			CheckoutURL: placed.CheckoutURL,
			Redirect:    placed.CheckoutURL,
		})
		return
	}

	if err := h.carts.ClearCart(ctx, sessionID); err != nil {
		requestLogger(r).Warn("order placed but cart not cleared",
			zap.Int64("order_id", placed.OrderID), zap.Error(err))
	}
	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		OrderID:  placed.OrderID,
		Redirect: fmt.Sprintf("/order/confirmation?orderId=%d&method=%s", placed.OrderID, method),
	})
}

func (h *CheckoutHandler) parse(r *http.Request) (CheckoutRequestDTO, *domain.Screenshot, error) {
	var req CheckoutRequestDTO

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, fmt.Errorf("invalid JSON body")
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(h.maxBodySize); err != nil {
		return req, nil, fmt.Errorf("invalid form data")
	}
	req = CheckoutRequestDTO{
		Phone:         r.FormValue("phone"),
		City:          r.FormValue("city"),
		Address:       r.FormValue("address"),
		Notes:         r.FormValue("notes"),
		PaymentMethod: r.FormValue("payment_method"),
	}

	file, header, err := r.FormFile("payment_screenshot")
	if err != nil {
		return req, nil, nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return req, nil, fmt.Errorf("could not read payment screenshot")
	}
	if len(data) == 0 {
		return req, nil, nil
	}
	return req, &domain.Screenshot{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func validateCheckout(req CheckoutRequestDTO, method domain.PaymentMethod, shot *domain.Screenshot, lines int) map[string]string {
	fields := map[string]string{}
	if lines == 0 {
		fields["cart"] = "Cannot checkout with an empty cart"
	}
	if strings.TrimSpace(req.Phone) == "" {
		fields["phone"] = "Phone is required"
	}
	if strings.TrimSpace(req.City) == "" {
		fields["city"] = "City is required"
	}
	if strings.TrimSpace(req.Address) == "" {
		fields["address"] = "Address is required"
	}
	if !method.Valid() {
		fields["payment_method"] = "Choose chapa or screenshot"
	}
	if method == domain.PaymentScreenshot && shot == nil {
		fields["payment_screenshot"] = "Please select a payment screenshot file"
	}
	return fields
}
