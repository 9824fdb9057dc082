package agrosdk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/agrowcrop/pkg/credstore"
	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAPIClientAttachesCurrentToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := newFakeOTPServer(t)
	sess := newLocalSession(t, credstore.NewMemory())
	api := NewAPIClient(srv.URL, sess, slogx.Discard())

	// Logged out: request goes out bare and the service rejects it.
	_, err := api.Me(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	// The same client picks up a token committed after construction.
	require.NoError(t, sess.Login(ctx, "server-token", &UserProfile{ID: "9876543210"}))
	me, err := api.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "+919876543210", me.Phone)

	// And drops it as soon as logout completes.
	require.NoError(t, sess.Logout(ctx))
	_, err = api.Me(ctx)
	require.Error(t, err)

	require.Equal(t, []string{"", "Bearer server-token", ""}, srv.headers())
}

func TestBearerTransportStripsCallerHeaderWhenLoggedOut(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
	}))
	t.Cleanup(srv.Close)

	sess := newLocalSession(t, credstore.NewMemory())
	api := NewAPIClient(srv.URL, sess, slogx.Discard())

	req, err := api.NewRequest(context.Background(), http.MethodGet, "/weather", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer stale")

	resp, err := api.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, "", <-got)
	require.Equal(t, "Bearer stale", req.Header.Get("Authorization"), "caller's request must not be mutated")
}

func TestBearerTransportLogsUnauthorizedWithoutLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	var logs lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	sess := newLocalSession(t, credstore.NewMemory())
	require.NoError(t, sess.Login(ctx, "revoked-token", &UserProfile{ID: "9876543210"}))

	api := NewAPIClient(srv.URL, sess, logger)
	err := api.GetJSON(ctx, "/api/crops", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	require.Contains(t, logs.String(), "unauthorized response")
	require.Contains(t, logs.String(), `"level":"WARN"`)
	require.NotContains(t, logs.String(), "revoked-token")
	require.True(t, sess.IsAuthenticated(), "a 401 must not end the session")
}

type erroringSource struct{}

func (erroringSource) Token(context.Context) (string, error) { return "", errors.New("boom") }

func TestBearerTransportTokenError(t *testing.T) {
	t.Parallel()

	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called <- struct{}{} }))
	t.Cleanup(srv.Close)

	api := NewAPIClient(srv.URL, erroringSource{}, slogx.Discard())
	err := api.GetJSON(context.Background(), "/", nil)
	require.Error(t, err)
	require.Empty(t, called)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestBearerTransportTokenErrorClosesBody(t *testing.T) {
	t.Parallel()

	body := &closeTracker{Reader: strings.NewReader(`{"q":1}`)}
	req, err := http.NewRequest(http.MethodPost, "http://example.invalid/api", body)
	require.NoError(t, err)

	tr := &BearerTransport{Source: erroringSource{}, Logger: slogx.Discard()}
	resp, err := tr.RoundTrip(req)
	require.Error(t, err)
	require.Nil(t, resp)
	require.True(t, body.closed)
}

func TestAPIClientPostJSON(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		writeTestJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}))
	t.Cleanup(srv.Close)

	sess := newLocalSession(t, credstore.NewMemory())
	require.NoError(t, sess.Login(context.Background(), "tok", nil))

	var out map[string]string
	api := NewAPIClient(srv.URL+"/", sess, slogx.Discard())
	require.NoError(t, api.PostJSON(context.Background(), "/api/fields", map[string]string{"crop": "wheat"}, &out))
	require.Equal(t, "saved", out["status"])

	h := <-headers
	require.Equal(t, "application/json", h.Get("Content-Type"))
	require.Equal(t, "Bearer tok", h.Get("Authorization"))
}

func TestSDKClientHealth(t *testing.T) {
	t.Parallel()

	authz := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz <- r.Header.Get("Authorization")
		writeTestJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}))
	t.Cleanup(srv.Close)

	client := NewSDKClient(srv.URL, slogx.Discard())
	health, err := client.GetLiveness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Empty(t, <-authz)
}

func TestParseErrorResponseFallback(t *testing.T) {
	t.Parallel()

	err := parseErrorResponse(&http.Response{StatusCode: http.StatusBadGateway}, []byte("<html>"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
	require.Contains(t, apiErr.Description, "502")
}
