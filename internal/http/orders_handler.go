package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	orders  Orders
	pricer  *Pricer
	timeout time.Duration
}

func NewOrdersHandler(orders Orders, pricer *Pricer, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		pricer:  pricer,
		timeout: timeout,
	}
}

type OrderResponseDTO struct {
	domain.Order
	SubtotalText         string `json:"subtotalText"`
	ShippingText         string `json:"shippingText"`
	TotalText            string `json:"totalText"`
	AwaitingVerification bool   `json:"awaitingVerification"`
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	returnTo := fmt.Sprintf("/order/confirmation?orderId=%d", orderID)
	token := getToken(r.Context())
	if token == "" {
		respondUnauthenticated(w, returnTo)
		return
	}

	order, err := h.orders.Order(ctx, token, orderID)
	if err != nil {
		handleBackendError(w, r, err, returnTo)
		return
	}

	if order.CartItemsSnapshot == nil {
		order.CartItemsSnapshot = []domain.CartLineItem{}
	}
	respondJSON(w, http.StatusOK, OrderResponseDTO{
		Order:                *order,
		SubtotalText:         h.pricer.format(order.SubtotalAmount, order.Currency),
		ShippingText:         h.pricer.format(order.ShippingAmount, order.Currency),
		TotalText:            h.pricer.format(order.TotalAmount, order.Currency),
		AwaitingVerification: order.AwaitingVerification(),
	})
}
