package backend

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
)

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	var out domain.Session
	if err := c.postJSON(ctx, "login", "/api/auth/login", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.Session, error) {
	var out domain.Session
	if err := c.postJSON(ctx, "register", "/api/auth/register", "", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	var out domain.User
	if err := c.getJSON(ctx, "profile", "/api/auth/profile", nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
