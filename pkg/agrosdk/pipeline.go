package agrosdk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
)

// TokenSource yields the bearer token to use right now. *Session implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// BearerTransport reads the token on every round trip, so nothing captured at
// construction can outlive a logout. A 401 is logged and passed through.
type BearerTransport struct {
	Base   http.RoundTripper
	Source TokenSource
	Logger *slog.Logger
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Source.Token(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("resolve bearer token: %w", err)
	}

	req = req.Clone(req.Context())
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		req.Header.Del("Authorization")
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.logger().Warn("unauthorized response, token may be invalid or expired",
			"method", req.Method,
			"path", req.URL.Path,
			"had_token", tok != "",
		)
	}
	return resp, nil
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *BearerTransport) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

// APIClient is the authenticated HTTP client for the application API.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient builds one long-lived client whose requests carry the
// current token from source.
func NewAPIClient(baseURL string, source TokenSource, logger *slog.Logger) *APIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &BearerTransport{
				Base:   slogx.NewTransport(nil, logger),
				Source: source,
				Logger: logger,
			},
		},
	}
}

// NewRequest builds a request against BaseURL with the JSON content type.
func (c *APIClient) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *APIClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// GetJSON decodes a 200 response into out, or returns an *APIError.
func (c *APIClient) GetJSON(ctx context.Context, path string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, http.StatusOK)
}

// PostJSON encodes in, posts it, and decodes a 200 response into out.
func (c *APIClient) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := encodeBody(in)
	if err != nil {
		return err
	}
	req, err := c.NewRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, http.StatusOK)
}

// Me returns the identity the service sees for the current token.
func (c *APIClient) Me(ctx context.Context) (*MeResponse, error) {
	var out MeResponse
	if err := c.GetJSON(ctx, "/api/auth/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
