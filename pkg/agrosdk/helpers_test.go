package agrosdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aussiebroadwan/agrowcrop/pkg/credstore"
	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// fakeOTPServer stands in for the OTP service.
type fakeOTPServer struct {
	*httptest.Server

	mu         sync.Mutex
	sentTo     []string
	verifyReqs []VerifyOTPRequest
	code       string
	role       string
	sendDown   bool
	authHeader []string
}

func newFakeOTPServer(t *testing.T) *fakeOTPServer {
	t.Helper()

	f := &fakeOTPServer{code: "424242", role: RoleFarmer}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/send-otp", func(w http.ResponseWriter, r *http.Request) {
		var req SendOTPRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		down := f.sendDown
		if !down {
			f.sentTo = append(f.sentTo, req.Phone)
		}
		f.mu.Unlock()

		if down {
			http.Error(w, "sms gateway unavailable", http.StatusServiceUnavailable)
			return
		}
		writeTestJSON(w, http.StatusOK, SendOTPResponse{Message: "OTP sent successfully"})
	})

	mux.HandleFunc("POST /api/auth/verify-otp", func(w http.ResponseWriter, r *http.Request) {
		var req VerifyOTPRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.verifyReqs = append(f.verifyReqs, req)
		code, role := f.code, f.role
		f.mu.Unlock()

		if req.OTP != code {
			ErrAPIInvalidOTP.WriteError(w)
			return
		}
		writeTestJSON(w, http.StatusOK, VerifyOTPResponse{Token: "server-token", Role: role})
	})

	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authHeader = append(f.authHeader, r.Header.Get("Authorization"))
		f.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer server-token" {
			NewAPIError(http.StatusUnauthorized, ErrorCodeInvalidToken, "missing bearer token").WriteError(w)
			return
		}
		writeTestJSON(w, http.StatusOK, MeResponse{Phone: "+919876543210", Role: RoleFarmer})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOTPServer) setSendDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendDown = down
}

func (f *fakeOTPServer) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sentTo...)
}

func (f *fakeOTPServer) headers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHeader...)
}

// unreachableURL returns the address of a server that has already shut down.
func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func writeTestJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newLocalSession(t *testing.T, store credstore.Store) *Session {
	t.Helper()

	sess, err := NewSession(context.Background(), SessionConfig{},
		WithCredentialStore(store),
		WithLogger(slogx.Discard()),
	)
	require.NoError(t, err)
	return sess
}

// failingStore refuses every write.
type failingStore struct {
	credstore.Store
}

var errDiskFull = errors.New("disk full")

func (failingStore) Set(context.Context, string, string) error { return errDiskFull }

func (failingStore) SetMany(context.Context, map[string]string) error { return errDiskFull }

func (failingStore) Delete(context.Context, ...string) error { return errDiskFull }

// fakeProvider is an in-memory IdentityProvider.
type fakeProvider struct {
	mu        sync.Mutex
	state     ProviderState
	subs      map[int]func(ProviderState)
	nextSub   int
	templates []string
	signOuts  int
	signOutFn func() error
	getToken  func(ctx context.Context) (string, error)
}

func newFakeProvider(st ProviderState) *fakeProvider {
	return &fakeProvider{
		state: st,
		subs:  make(map[int]func(ProviderState)),
		getToken: func(context.Context) (string, error) {
			return "provider-token", nil
		},
	}
}

func (p *fakeProvider) State(context.Context) (ProviderState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

func (p *fakeProvider) GetToken(ctx context.Context, template string) (string, error) {
	p.mu.Lock()
	p.templates = append(p.templates, template)
	fn := p.getToken
	p.mu.Unlock()
	return fn(ctx)
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signOuts++
	fn := p.signOutFn
	p.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

func (p *fakeProvider) Subscribe(fn func(ProviderState)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *fakeProvider) emit(st ProviderState) {
	p.mu.Lock()
	p.state = st
	subs := make([]func(ProviderState), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (p *fakeProvider) subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *fakeProvider) setGetToken(fn func(ctx context.Context) (string, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getToken = fn
}

func signedIn(user *ProviderUser) ProviderState {
	return ProviderState{Loaded: true, SignedIn: true, User: user}
}
