package agrosdk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/agrowcrop/pkg/credstore"
	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
)

// SessionConfig selects the backend. A non-empty PublishableKey means the
// hosted provider is configured and the session runs in delegated mode.
type SessionConfig struct {
	PublishableKey string
	TokenTemplate  string
}

type sessionOptions struct {
	store    credstore.Store
	provider IdentityProvider
	logger   *slog.Logger
}

type Option func(*sessionOptions)

// WithCredentialStore sets where a local session is persisted.
func WithCredentialStore(s credstore.Store) Option {
	return func(o *sessionOptions) { o.store = s }
}

// WithIdentityProvider is required in delegated mode.
func WithIdentityProvider(p IdentityProvider) Option {
	return func(o *sessionOptions) { o.provider = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) { o.logger = l }
}

// Session is the single view of authentication state for the application.
// Pass it explicitly, or carry it on a context with WithSession.
type Session struct {
	auth   Authenticator
	logger *slog.Logger
}

// View is a point-in-time copy of the session.
type View struct {
	Token           string
	User            *UserProfile
	Mode            Mode
	IsAuthenticated bool
	Loaded          bool
}

// NewSession binds the session to exactly one authenticator.
func NewSession(ctx context.Context, cfg SessionConfig, opts ...Option) (*Session, error) {
	o := sessionOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slogx.Discard()
	}

	if cfg.PublishableKey != "" {
		if o.provider == nil {
			return nil, ErrProviderRequired
		}
		logger := o.logger.With("auth_mode", string(ModeDelegated))

		d := NewDelegatedAuthenticator(o.provider, DelegatedConfig{TokenTemplate: cfg.TokenTemplate}, logger)
		if err := d.Mount(ctx); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("mount delegated authenticator: %w", err)
		}
		return &Session{auth: d, logger: logger}, nil
	}

	logger := o.logger.With("auth_mode", string(ModeLocal))
	if o.store == nil {
		logger.Warn("no credential store configured, local session will not survive restart")
		o.store = credstore.NewMemory()
	}

	l := NewLocalAuthenticator(NewCredentialStore(o.store), logger)
	if err := l.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore local session: %w", err)
	}
	return &Session{auth: l, logger: logger}, nil
}

func (s *Session) Mode() Mode { return s.auth.Mode() }

// Token returns the current token, refreshed if the backend supports it.
// It satisfies TokenSource.
func (s *Session) Token(ctx context.Context) (string, error) {
	return s.auth.Token(ctx)
}

func (s *Session) User() *UserProfile { return s.auth.User() }

func (s *Session) IsAuthenticated() bool { return s.auth.CurrentToken() != "" }

func (s *Session) Loaded() bool { return s.auth.Loaded() }

// Snapshot reads token and user in one step, so the view never pairs one
// session's token with another's user.
func (s *Session) Snapshot() View {
	tok, user := s.auth.Credentials()
	return View{
		Token:           tok,
		User:            user,
		Mode:            s.auth.Mode(),
		IsAuthenticated: tok != "",
		Loaded:          s.auth.Loaded(),
	}
}

// Login commits a token and user. Delegated sessions ignore it.
func (s *Session) Login(ctx context.Context, token string, user *UserProfile) error {
	return s.auth.Login(ctx, token, user)
}

// Logout ends the session. IsAuthenticated is false afterwards even when an
// error is returned.
func (s *Session) Logout(ctx context.Context) error {
	return s.auth.Logout(ctx)
}

func (s *Session) Close() error { return s.auth.Close() }

type sessionCtxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// FromContext returns ErrNoSession when no session was attached.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(sessionCtxKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// MustFromContext panics when no session was attached; a missing session is
// a wiring bug, not a runtime condition.
func MustFromContext(ctx context.Context) *Session {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
