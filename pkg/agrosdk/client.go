package agrosdk

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
)

// SDKClient talks to the unauthenticated endpoints of the OTP service.
// It never carries a bearer token.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10 second timeout and request logging.
func NewSDKClient(baseURL string, logger *slog.Logger) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: slogx.NewTransport(nil, logger),
		},
	}
}
