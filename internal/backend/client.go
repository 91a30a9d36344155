package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBody = 10 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
	// UploadsURL prefixes relative image paths; defaults to BaseURL + "/uploads".
	UploadsURL string
}

// Client talks to the storefront backend API.
type Client struct {
	baseURL    string
	uploadsURL string
	http       *http.Client
	cb         *gobreaker.CircuitBreaker[*response]
	log        *zap.Logger
}

type response struct {
	status int
	body   []byte
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	uploads := strings.TrimRight(cfg.UploadsURL, "/")
	if uploads == "" {
		uploads = base + "/uploads"
	}

	st := gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// a shopper navigating away says nothing about backend health
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Client{
		baseURL:    base,
		uploadsURL: uploads,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:  gobreaker.NewCircuitBreaker[*response](st),
		log: log,
	}
}

// UploadsURL is the prefix for product image paths.
func (c *Client) UploadsURL() string {
	return c.uploadsURL
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, token string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	return c.do(req, endpoint, token, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint, path, token string, in, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	return c.do(req, endpoint, token, out)
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req through the breaker and decodes a 2xx body into out. Requests
// are never retried.
func (c *Client) do(req *http.Request, endpoint, token string, out any) error {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.cb.Execute(func() (*response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer r.Body.Close()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
		}
		if r.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, r.StatusCode)
		}
		return &response{status: r.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.record(endpoint, err)
		return err
	}

	if err := statusError(resp); err != nil {
		c.record(endpoint, err)
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.body, out); err != nil {
			err = fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, endpoint, err)
			c.record(endpoint, err)
			return err
		}
	}
	c.record(endpoint, nil)
	return nil
}

func statusError(resp *response) error {
	switch {
	case resp.status >= 200 && resp.status < 300:
		return nil
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return ErrUnauthorized
	case resp.status == http.StatusNotFound:
		return ErrNotFound
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(resp.body, &body)
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	return &APIError{Status: resp.status, Message: msg}
}

func (c *Client) record(endpoint string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case errors.Is(err, ErrUnavailable):
		outcome = "unavailable"
		c.log.Warn("backend request failed", zap.String("endpoint", endpoint), zap.Error(err))
	default:
		outcome = "rejected"
	}
	metrics.BackendRequests.WithLabelValues(endpoint, outcome).Inc()
}
