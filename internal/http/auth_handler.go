package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/backend"
	"github.com/fjod/storefront/internal/domain"
)

type AuthHandler struct {
	accounts Accounts
	timeout  time.Duration
}

func NewAuthHandler(accounts Accounts, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		timeout:  timeout,
	}
}

type RegisterRequestDTO struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "Email is required"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	sess, err := h.accounts.Login(ctx, req)
	if errors.Is(err, backend.ErrUnauthorized) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if err != nil {
		handleBackendError(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	fields := map[string]string{}
	if req.FirstName == "" {
		fields["first_name"] = "First name is required"
	}
	if req.LastName == "" {
		fields["last_name"] = "Last name is required"
	}
	if req.Email == "" {
		fields["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "Email is invalid"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if req.Password != req.ConfirmPassword {
		fields["confirm_password"] = "Passwords do not match"
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	sess, err := h.accounts.Register(ctx, domain.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
	})
	if err != nil {
		handleBackendError(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := getToken(r.Context())
	if token == "" {
		respondUnauthenticated(w, "/account")
		return
	}

	user, err := h.accounts.Profile(ctx, token)
	if err != nil {
		handleBackendError(w, r, err, "/account")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
