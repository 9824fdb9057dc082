package agrosdk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
)

// DefaultTokenTemplate names the provider template that mints API tokens.
const DefaultTokenTemplate = "agrowcrop-api"

// refreshBuffer is how long before exp a delegated token is refetched.
const refreshBuffer = 30 * time.Second

// ProviderUser is the subset of the hosted provider's profile we consume.
type ProviderUser struct {
	ID             string
	FullName       string
	PrimaryPhone   string
	PublicMetadata map[string]any
}

// ProviderState is a snapshot of the provider's sign-in state.
type ProviderState struct {
	Loaded   bool
	SignedIn bool
	User     *ProviderUser
}

// IdentityProvider is the hosted identity service. Its wire protocol is
// someone else's problem; we only need these four operations.
type IdentityProvider interface {
	State(ctx context.Context) (ProviderState, error)
	GetToken(ctx context.Context, template string) (string, error)
	SignOut(ctx context.Context) error

	// Subscribe registers fn for state changes and returns a func that
	// removes it.
	Subscribe(fn func(ProviderState)) (unsubscribe func())
}

type DelegatedConfig struct {
	TokenTemplate string
	Now           func() time.Time
}

// DelegatedAuthenticator republishes the provider's token. It never
// persists anything.
type DelegatedAuthenticator struct {
	provider IdentityProvider
	template string
	now      func() time.Time
	logger   *slog.Logger

	// fetchCtx is cancelled by Close; every background fetch runs under it.
	fetchCtx    context.Context
	cancelFetch context.CancelFunc
	wg          sync.WaitGroup

	// refreshMu serialises synchronous refreshes from Token.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	mounted     bool
	closed      bool
	unsubscribe func()
	epoch       uint64 // bumped on every state change; stale fetches compare against it
	state       ProviderState
	token       string
}

func NewDelegatedAuthenticator(provider IdentityProvider, cfg DelegatedConfig, logger *slog.Logger) *DelegatedAuthenticator {
	if cfg.TokenTemplate == "" {
		cfg.TokenTemplate = DefaultTokenTemplate
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DelegatedAuthenticator{
		provider:    provider,
		template:    cfg.TokenTemplate,
		now:         cfg.Now,
		logger:      logger,
		fetchCtx:    ctx,
		cancelFetch: cancel,
	}
}

// Mount starts observing the provider. It is safe to call more than once.
func (a *DelegatedAuthenticator) Mount(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("agrosdk: mount after close")
	}
	if a.mounted {
		a.mu.Unlock()
		return nil
	}
	a.mounted = true
	a.mu.Unlock()

	unsubscribe := a.provider.Subscribe(func(st ProviderState) { a.apply(st, false) })

	a.mu.Lock()
	a.unsubscribe = unsubscribe
	a.mu.Unlock()

	st, err := a.provider.State(ctx)
	if err != nil {
		return fmt.Errorf("read provider state: %w", err)
	}
	a.apply(st, true)
	return nil
}

// apply records a new provider state. The initial read is dropped if a
// subscription callback already delivered something newer.
func (a *DelegatedAuthenticator) apply(st ProviderState, initial bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || (initial && a.epoch > 0) {
		return
	}

	a.epoch++
	a.state = st

	if !st.SignedIn {
		a.token = ""
		return
	}

	a.wg.Add(1)
	go a.fetch(a.epoch)
}

func (a *DelegatedAuthenticator) fetch(epoch uint64) {
	defer a.wg.Done()

	tok, err := a.provider.GetToken(a.fetchCtx, a.template)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || epoch != a.epoch {
		a.logger.Debug("discarding provider token from superseded state")
		return
	}
	if err != nil {
		a.logger.Error("failed to fetch provider token", "template", a.template, "err", err)
		return
	}
	a.token = tok
}

// Close stops observing the provider. No fetch commits after it returns.
func (a *DelegatedAuthenticator) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.token = ""
	unsubscribe := a.unsubscribe
	a.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	a.cancelFetch()
	a.wg.Wait()
	return nil
}

func (a *DelegatedAuthenticator) Mode() Mode { return ModeDelegated }

func (a *DelegatedAuthenticator) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Loaded
}

func (a *DelegatedAuthenticator) CurrentToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Token returns the held token, refetching it first when it is a JWT within
// refreshBuffer of expiry. Opaque tokens are returned as-is. A failed
// refresh keeps the old token while it is still valid.
func (a *DelegatedAuthenticator) Token(ctx context.Context) (string, error) {
	tok := a.CurrentToken()
	if tok == "" || !a.needsRefresh(tok) {
		return tok, nil
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Double-check: another caller may have refreshed while we waited.
	a.mu.RLock()
	tok, epoch := a.token, a.epoch
	a.mu.RUnlock()
	if tok == "" || !a.needsRefresh(tok) {
		return tok, nil
	}

	fresh, err := a.provider.GetToken(ctx, a.template)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || epoch != a.epoch {
		return a.token, nil
	}
	if err != nil {
		a.logger.Error("failed to refresh provider token", "template", a.template, "err", err)
		if a.expired(tok) {
			a.token = ""
			return "", nil
		}
		return tok, nil
	}
	a.token = fresh
	return fresh, nil
}

func (a *DelegatedAuthenticator) needsRefresh(tok string) bool {
	exp, ok := jwtx.ExpiresAt(tok)
	if !ok {
		return false
	}
	return !a.now().Add(refreshBuffer).Before(exp)
}

func (a *DelegatedAuthenticator) expired(tok string) bool {
	exp, ok := jwtx.ExpiresAt(tok)
	return ok && !a.now().Before(exp)
}

func (a *DelegatedAuthenticator) User() *UserProfile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userLocked()
}

func (a *DelegatedAuthenticator) Credentials() (string, *UserProfile) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token, a.userLocked()
}

func (a *DelegatedAuthenticator) userLocked() *UserProfile {
	if !a.state.SignedIn || a.state.User == nil {
		return nil
	}
	return normalizeProviderUser(a.state.User)
}

func normalizeProviderUser(pu *ProviderUser) *UserProfile {
	u := UserProfile{
		ID:    pu.ID,
		Phone: pu.PrimaryPhone,
		Name:  pu.FullName,
	}
	if role, ok := pu.PublicMetadata["role"].(string); ok {
		u.Role = strings.TrimSpace(role)
	}
	u = u.withDefaults()
	return &u
}

// Login is a no-op: the provider's own sign-in UI drives delegated login.
func (a *DelegatedAuthenticator) Login(context.Context, string, *UserProfile) error {
	return nil
}

// Logout signs out at the provider and then drops local state, even when
// sign-out fails.
func (a *DelegatedAuthenticator) Logout(ctx context.Context) error {
	err := a.provider.SignOut(ctx)

	a.mu.Lock()
	a.epoch++
	a.token = ""
	a.state = ProviderState{Loaded: a.state.Loaded}
	a.mu.Unlock()

	if err != nil {
		a.logger.Warn("provider sign-out failed", "err", err)
		return fmt.Errorf("provider sign out: %w", err)
	}
	return nil
}
