package agrosdk

import "context"

// Authenticator is one of the two session backends. A Session binds exactly
// one at construction and never swaps it.
type Authenticator interface {
	Mode() Mode

	// CurrentToken returns the held token without any refresh. Empty means
	// not authenticated.
	CurrentToken() string

	// Token returns a usable token, refreshing it first when the backend
	// supports that. Empty means not authenticated.
	Token(ctx context.Context) (string, error)

	User() *UserProfile

	// Credentials returns the held token and user read together, without
	// any refresh.
	Credentials() (token string, user *UserProfile)

	// Loaded reports whether the backend has produced its first answer.
	Loaded() bool

	Login(ctx context.Context, token string, user *UserProfile) error
	Logout(ctx context.Context) error
	Close() error
}

var (
	_ Authenticator = (*LocalAuthenticator)(nil)
	_ Authenticator = (*DelegatedAuthenticator)(nil)
)
