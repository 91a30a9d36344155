package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/storefront/internal/backend"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withAuth(h map[string]string) map[string]string {
	h["Authorization"] = "Bearer opaque-token"
	return h
}

func validCheckout(method string) CheckoutRequestDTO {
	return CheckoutRequestDTO{Phone: "0911000000", City: "Addis Ababa", Address: "Bole", PaymentMethod: method}
}

func TestCheckout_RequiresLogin(t *testing.T) {
	env := setupTestEnv(t, usdETB())

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", validCheckout("chapa"), session())
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "unauthenticated", resp.Code)
	assert.Equal(t, "/account?redirect=%2Fcheckout", resp.Redirect)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := setupTestEnv(t, usdETB())

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", validCheckout("chapa"), withAuth(session()))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "cart")
	assert.Nil(t, env.orders.last)
}

func TestCheckout_MissingDetails(t *testing.T) {
	env := setupTestEnv(t, usdETB())
	h := withAuth(session())
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2}, h)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", CheckoutRequestDTO{PaymentMethod: "bank"}, h)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	fields := decode[ErrorResponse](t, rec).Fields
	assert.Contains(t, fields, "phone")
	assert.Contains(t, fields, "city")
	assert.Contains(t, fields, "address")
	assert.Contains(t, fields, "payment_method")
	assert.NotContains(t, fields, "cart")
}

func TestCheckout_ScreenshotRequired(t *testing.T) {
	env := setupTestEnv(t, usdETB())
	h := withAuth(session())
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2}, h)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", validCheckout("screenshot"), h)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "payment_screenshot")
}

func TestCheckout_ChapaKeepsCart(t *testing.T) {
	env := setupTestEnv(t, usdETB())
	env.orders.placement = &domain.OrderPlacement{CheckoutURL: "https://checkout.chapa.co/abc"}
	h := withAuth(session())
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2, Quantity: 2}, h)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", validCheckout("chapa"), h)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, "https://checkout.chapa.co/abc", resp.CheckoutURL)

	require.NotNil(t, env.orders.last)
	assert.Equal(t, "opaque-token", env.orders.lastToken)
	assert.Equal(t, h[SessionHeader], env.orders.last.SessionID)
	assert.Equal(t, domain.PaymentChapa, env.orders.last.Method)
	require.Len(t, env.orders.last.Items, 1)
	assert.Equal(t, 2, env.orders.last.Items[0].Quantity)

	cartRec := env.do(t, http.MethodGet, "/api/v1/cart", nil, h)
	assert.Len(t, decode[CartResponse](t, cartRec).Items, 1)
}

func TestCheckout_ScreenshotClearsCart(t *testing.T) {
	env := setupTestEnv(t, usdETB())
	env.orders.placement = &domain.OrderPlacement{OrderID: 41}
	h := withAuth(session())
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2}, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"phone":          "0911000000",
		"city":           "Adama",
		"address":        "Main st",
		"payment_method": "screenshot",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("payment_screenshot", "receipt.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("PNGDATA"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range h {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[CheckoutResponseDTO](t, rec)
	assert.Equal(t, int64(41), resp.OrderID)
	assert.Equal(t, "/order/confirmation?orderId=41&method=screenshot", resp.Redirect)

	require.NotNil(t, env.orders.last.Screenshot)
	assert.Equal(t, "receipt.png", env.orders.last.Screenshot.Filename)
	assert.Equal(t, []byte("PNGDATA"), env.orders.last.Screenshot.Data)

	cartRec := env.do(t, http.MethodGet, "/api/v1/cart", nil, h)
	assert.Empty(t, decode[CartResponse](t, cartRec).Items)
}

func TestCheckout_BackendRejectsToken(t *testing.T) {
	env := setupTestEnv(t, usdETB())
	env.orders.err = backend.ErrUnauthorized
	h := withAuth(session())
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2}, h)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", validCheckout("chapa"), h)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/account?redirect=%2Fcheckout", decode[ErrorResponse](t, rec).Redirect)
}

func TestCheckout_BackendMessageIsShown(t *testing.T) {
	env := setupTestEnv(t, usdETB())
	env.orders.err = &backend.APIError{Status: 400, Message: "Product out of stock"}
	h := withAuth(session())
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2}, h)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", validCheckout("chapa"), h)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product out of stock", decode[ErrorResponse](t, rec).Error)
}

func TestCheckout_CartReadFailureIsUnavailable(t *testing.T) {
	st := &flakyStorage{Memory: storage.NewMemory()}
	env := setupTestEnvWithStorage(t, usdETB(), st)
	h := withAuth(session())
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2}, h)

	st.failReads(errors.New("redis timeout"))
	rec := env.do(t, http.MethodPost, "/api/v1/checkout", validCheckout("chapa"), h)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.True(t, resp.Dismissible)
	assert.Empty(t, resp.Fields)
	assert.Nil(t, env.orders.last)

	st.failReads(nil)
	cartRec := env.do(t, http.MethodGet, "/api/v1/cart", nil, h)
	assert.Len(t, decode[CartResponse](t, cartRec).Items, 1)
}
