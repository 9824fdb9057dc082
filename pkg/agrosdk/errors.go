package agrosdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/agrowcrop/pkg/httpx"
)

var (
	ErrInvalidPhone     = errors.New("agrosdk: invalid phone number")
	ErrInvalidCode      = errors.New("agrosdk: invalid verification code")
	ErrCodeExpired      = errors.New("agrosdk: verification code expired")
	ErrNoChallenge      = errors.New("agrosdk: no code has been requested")
	ErrNoSession        = errors.New("agrosdk: no session in context")
	ErrProviderRequired = errors.New("agrosdk: delegated mode requires an identity provider")
	ErrNotSignedIn      = errors.New("agrosdk: not signed in")
)

// Error codes shared by the OTP service and the SDK.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidPhone   = "invalid_phone"
	ErrorCodeInvalidOTP     = "invalid_otp"
	ErrorCodeInvalidToken   = "invalid_token"
	ErrorCodeRateLimited    = "rate_limit_exceeded"
	ErrorCodeServerError    = "server_error"
)

// APIError is a non-2xx response from the OTP service. Handlers write it,
// the SDK parses it back.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is lets errors.Is match on status and code, so a parsed response compares
// equal to the predefined value the server wrote.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

var (
	ErrAPIInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	ErrAPIInvalidOTP = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidOTP,
		Description: "Invalid or expired OTP",
	}

	ErrAPIServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse converts a non-2xx response into an *APIError. Bodies
// that are not in the ErrorResponse shape keep the status code and get a
// generic description.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
