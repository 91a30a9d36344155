package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/fjod/storefront/internal/domain"
)

// SessionHeader carries the shopper's cart session to the backend.
const SessionHeader = "X-Session-ID"

// PlaceOrder submits an order. Chapa orders return a hosted checkout URL;
// screenshot orders upload the proof of payment and return the order id.
func (c *Client) PlaceOrder(ctx context.Context, token string, req domain.OrderRequest) (*domain.OrderPlacement, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	switch req.Method {
	case domain.PaymentChapa:
		return c.initiateChapa(ctx, token, req)
	case domain.PaymentScreenshot:
		return c.uploadScreenshot(ctx, token, req)
	}
	return nil, fmt.Errorf("unsupported payment method %q", req.Method)
}

func (c *Client) initiateChapa(ctx context.Context, token string, req domain.OrderRequest) (*domain.OrderPlacement, error) {
	payload := struct {
		CheckoutDetails domain.CheckoutDetails `json:"checkoutDetails"`
		Items           []domain.CartLineItem  `json:"items"`
	}{req.Details, req.Items}

	httpReq, err := c.newJSONRequest(ctx, http.MethodPost, "/api/orders/initiate-chapa", payload)
	if err != nil {
		return nil, err
	}
	if req.SessionID != "" {
		// echoed back in order events so the paid cart can be cleared
		httpReq.Header.Set(SessionHeader, req.SessionID)
	}

	var out struct {
		CheckoutURL string `json:"checkoutUrl"`
	}
	if err := c.do(httpReq, "initiate_chapa", token, &out); err != nil {
		return nil, err
	}
	if out.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: chapa checkout url missing", ErrUnavailable)
	}
	return &domain.OrderPlacement{CheckoutURL: out.CheckoutURL}, nil
}

func (c *Client) uploadScreenshot(ctx context.Context, token string, req domain.OrderRequest) (*domain.OrderPlacement, error) {
	if req.Screenshot == nil || len(req.Screenshot.Data) == 0 {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "payment screenshot is required"}
	}

	details, err := json.Marshal(req.Details)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout details failed: %w", err)
	}
	items, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items failed: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="paymentScreenshot"; filename=%q`, req.Screenshot.Filename))
	contentType := req.Screenshot.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("build multipart failed: %w", err)
	}
	if _, err := part.Write(req.Screenshot.Data); err != nil {
		return nil, fmt.Errorf("build multipart failed: %w", err)
	}
	if err := mw.WriteField("checkoutDetailsJson", string(details)); err != nil {
		return nil, fmt.Errorf("build multipart failed: %w", err)
	}
	if err := mw.WriteField("itemsJson", string(items)); err != nil {
		return nil, fmt.Errorf("build multipart failed: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/checkout/upload-screenshot", &body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if req.SessionID != "" {
		httpReq.Header.Set(SessionHeader, req.SessionID)
	}

	var out struct {
		OrderID int64 `json:"orderId"`
	}
	if err := c.do(httpReq, "upload_screenshot", token, &out); err != nil {
		return nil, err
	}
	return &domain.OrderPlacement{OrderID: out.OrderID}, nil
}

func (c *Client) Order(ctx context.Context, token string, id int64) (*domain.Order, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	var out domain.Order
	if err := c.getJSON(ctx, "order", fmt.Sprintf("/api/orders/%d", id), nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
