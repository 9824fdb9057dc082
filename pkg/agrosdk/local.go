package agrosdk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// LocalAuthenticator holds a long-lived token issued by the OTP service and
// mirrors it into a CredentialStore.
type LocalAuthenticator struct {
	store  *CredentialStore
	logger *slog.Logger

	// mu is held across persistence so the store and memory never disagree.
	mu    sync.RWMutex
	token string
	user  *UserProfile
}

func NewLocalAuthenticator(store *CredentialStore, logger *slog.Logger) *LocalAuthenticator {
	return &LocalAuthenticator{store: store, logger: logger}
}

// Restore loads a persisted session, if any.
func (a *LocalAuthenticator) Restore(ctx context.Context) error {
	token, user, ok, err := a.store.Load(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !ok {
		a.token, a.user = "", nil
		return nil
	}
	if user != nil {
		u := user.withDefaults()
		user = &u
	}
	a.token, a.user = token, user

	a.logger.Debug("restored local session", "user_id", userID(user))
	return nil
}

func (a *LocalAuthenticator) Mode() Mode   { return ModeLocal }
func (a *LocalAuthenticator) Loaded() bool { return true }

func (a *LocalAuthenticator) CurrentToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Token never refreshes; local tokens live until logout.
func (a *LocalAuthenticator) Token(context.Context) (string, error) {
	return a.CurrentToken(), nil
}

func (a *LocalAuthenticator) User() *UserProfile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneUser(a.user)
}

func (a *LocalAuthenticator) Credentials() (string, *UserProfile) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token, cloneUser(a.user)
}

// Login persists first and only then updates memory. A persistence failure
// leaves the previous session untouched.
func (a *LocalAuthenticator) Login(ctx context.Context, token string, user *UserProfile) error {
	if token == "" {
		return errors.New("agrosdk: login requires a token")
	}

	var u *UserProfile
	if user != nil {
		v := user.withDefaults()
		u = &v
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Save(ctx, token, u); err != nil {
		return err
	}
	a.token, a.user = token, u

	a.logger.Info("local session started", "user_id", userID(u))
	return nil
}

// Logout always clears memory. The returned error only reports a failure to
// clear the durable copy.
func (a *LocalAuthenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token, a.user = "", nil
	if err := a.store.Clear(ctx); err != nil {
		return err
	}

	a.logger.Info("local session ended")
	return nil
}

func (a *LocalAuthenticator) Close() error {
	return a.store.Close()
}

func cloneUser(u *UserProfile) *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func userID(u *UserProfile) string {
	if u == nil {
		return ""
	}
	return u.ID
}
