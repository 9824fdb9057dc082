package agrosdk

// Mode is the authentication backend a Session is bound to.
type Mode string

const (
	ModeLocal     Mode = "local"
	ModeDelegated Mode = "delegated"
)

// RoleFarmer is the role assumed whenever none is supplied.
const RoleFarmer = "Farmer"

// UserProfile is the application's view of the signed-in user, regardless of
// which backend produced it.
type UserProfile struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// withDefaults returns a copy with Role filled in.
func (u UserProfile) withDefaults() UserProfile {
	if u.Role == "" {
		u.Role = RoleFarmer
	}
	return u
}

// ============================================================================
// Wire Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response from the OTP service.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// SendOTPRequest is the body of POST /api/auth/send-otp.
type SendOTPRequest struct {
	Phone string `json:"phone"`
}

type SendOTPResponse struct {
	Message string `json:"message"`
}

// VerifyOTPRequest is the body of POST /api/auth/verify-otp.
type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type VerifyOTPResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// MeResponse is returned by GET /api/auth/me.
type MeResponse struct {
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
