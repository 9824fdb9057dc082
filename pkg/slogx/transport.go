package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport is the client-side twin of HTTPMiddleware: it stamps outbound
// requests with an X-Request-ID, reusing one set by WithRequestID, and logs
// each round trip at debug level.
// Request headers are never logged, so bearer tokens stay out of the output.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	header := req.Header.Get("X-Request-ID")
	if header == "" {
		header = RequestIDFromContext(req.Context())
	}
	reqID := requestID(header)
	if req.Header.Get("X-Request-ID") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-ID", reqID)
	}

	logger := t.Logger.With(
		"req_id", reqID,
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		logger.Debug("http_client_request_failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
		return nil, err
	}

	logger.Debug("http_client_request",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
