package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	otphttp "github.com/aussiebroadwan/agrowcrop/internal/otp/http"
	"github.com/aussiebroadwan/agrowcrop/internal/otp/service"
	"github.com/aussiebroadwan/agrowcrop/internal/otp/store/drivers/sqlite"
	"github.com/aussiebroadwan/agrowcrop/pkg/cryptox"
	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testPhone = "+919876543210"

type lastCodeSender struct {
	mu   sync.Mutex
	code string
}

func (s *lastCodeSender) Send(_ context.Context, _, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	return nil
}

func (s *lastCodeSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// newOTPServer runs the real OTP service in-process.
func newOTPServer(t *testing.T) (*httptest.Server, *lastCodeSender) {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "otp.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("cli-test", pemKey)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	logger := slogx.Discard()
	sender := &lastCodeSender{}
	r := otphttp.NewRouter(keys, jwtx.NewVerifierEdDSA(keys, "agrowcrop-otp"), "test", st, logger)
	r.OTPService = &service.OTPService{Store: st, Sender: sender, Logger: logger, Issuer: "agrowcrop-otp"}
	r.TokenService = &service.TokenService{Signer: signer, Issuer: "agrowcrop-otp"}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, sender
}

// lazyInput builds stdin on the first read, after the command has already
// requested a code.
type lazyInput struct {
	fill func() string
	r    io.Reader
}

func (l *lazyInput) Read(p []byte) (int, error) {
	if l.r == nil {
		l.r = strings.NewReader(l.fill())
	}
	return l.r.Read(p)
}

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, cfg Config, in io.Reader, args ...string) result {
	t.Helper()

	if in == nil {
		in = strings.NewReader("")
	}
	var out, errOut bytes.Buffer
	code := Run(context.Background(), cfg, args, IO{In: in, Out: &out, Err: &errOut})
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func testConfig(t *testing.T, baseURL, store string) Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agrowcrop", "credentials.json")
	if store == StoreSQLite {
		path = filepath.Join(t.TempDir(), "agrowcrop", "credentials.db")
	}
	return Config{
		APIBaseURL:      baseURL,
		TokenTemplate:   "agrowcrop-api",
		CredentialStore: store,
		CredentialPath:  path,
		Env:             "test",
		LogLevel:        "error",
		LogFormat:       "text",
	}
}

func TestLoginAgainstService(t *testing.T) {
	t.Parallel()

	for _, store := range []string{StoreFile, StoreSQLite} {
		t.Run(store, func(t *testing.T) {
			t.Parallel()

			srv, sender := newOTPServer(t)
			cfg := testConfig(t, srv.URL, store)

			res := run(t, cfg, &lazyInput{fill: func() string {
				code := sender.last()
				wrong := "000000"
				if code == wrong {
					wrong = "111111"
				}
				return "r\n" + wrong + "\n" + code + "\n"
			}}, "login", "9876543210")
			require.Equal(t, 0, res.code, res.stderr)
			require.Contains(t, res.stdout, "Signed in as 9876543210 (Farmer)")
			require.Contains(t, res.stderr, "Code re-sent.")
			require.Contains(t, res.stderr, "try again")

			// A new process restores the session from the credential store.
			res = run(t, cfg, nil, "whoami", "-remote")
			require.Equal(t, 0, res.code, res.stderr)
			require.Contains(t, res.stdout, "mode:  local")
			require.Contains(t, res.stdout, "role:  Farmer")
			require.Contains(t, res.stdout, "token expires")
			require.Contains(t, res.stdout, "service sees "+testPhone+" as Farmer")

			res = run(t, cfg, nil, "get", "-q", "phone", "/api/auth/me")
			require.Equal(t, 0, res.code, res.stderr)
			require.Equal(t, testPhone+"\n", res.stdout)

			res = run(t, cfg, nil, "logout")
			require.Equal(t, 0, res.code, res.stderr)

			res = run(t, cfg, nil, "whoami")
			require.Equal(t, 1, res.code)
			require.Contains(t, res.stderr, "not signed in")

			res = run(t, cfg, nil, "get", "api/auth/me")
			require.Equal(t, 1, res.code)
			require.Contains(t, res.stderr, "401")
		})
	}
}

func TestLoginWithCodeFlag(t *testing.T) {
	t.Parallel()

	srv, sender := newOTPServer(t)
	cfg := testConfig(t, srv.URL, StoreMemory)

	res := run(t, cfg, nil, "login", testPhone)
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "no code entered")

	// The unexpired challenge is re-sent with the same code.
	code := sender.last()
	res = run(t, cfg, nil, "login", "-code", code, testPhone)
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, code, sender.last())
}

var devCodePattern = regexp.MustCompile(`Development code for \+919876543210: (\d{6})`)

func TestLoginFallsBackToDevCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(nil)
	baseURL := srv.URL
	srv.Close()

	cfg := testConfig(t, baseURL, StoreFile)

	var out, errOut bytes.Buffer
	in := &lazyInput{fill: func() string {
		m := devCodePattern.FindStringSubmatch(errOut.String())
		if m == nil {
			return ""
		}
		return m[1] + "\n"
	}}

	code := Run(context.Background(), cfg, []string{"login", "98765-43210"}, IO{In: in, Out: &out, Err: &errOut})
	require.Equal(t, 0, code, errOut.String())
	require.Contains(t, out.String(), "Signed in as 98765-43210 (Farmer)")

	res := run(t, cfg, nil, "whoami")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "role:  Farmer")
	require.NotContains(t, res.stdout, "token expires", "dev tokens are opaque")
}

func TestLoginInProductionDoesNotFallBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(nil)
	baseURL := srv.URL
	srv.Close()

	cfg := testConfig(t, baseURL, StoreMemory)
	cfg.Env = "prod"

	res := run(t, cfg, nil, "login", testPhone)
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "failed to send OTP")
	require.NotContains(t, res.stderr, "Development code")
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newOTPServer(t)
	res := run(t, testConfig(t, srv.URL, StoreMemory), nil, "health")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "status:  ok")
	require.Contains(t, res.stdout, "  database: ok")
	require.Contains(t, res.stdout, "  signer: ok")
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1", StoreMemory)

	res := run(t, cfg, nil)
	require.Equal(t, 2, res.code)
	require.Contains(t, res.stderr, "usage: agrowcrop")

	res = run(t, cfg, nil, "help")
	require.Equal(t, 0, res.code)
	require.Contains(t, res.stdout, "commands:")

	res = run(t, cfg, nil, "frobnicate")
	require.Equal(t, 2, res.code)
	require.Contains(t, res.stderr, `unknown command "frobnicate"`)

	res = run(t, cfg, nil, "login")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "usage: agrowcrop login")

	res = run(t, cfg, nil, "login", "12345")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "invalid phone")
}

func TestDelegatedModeNeedsProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1", StoreMemory)
	cfg.PublishableKey = "pk_test_abc"

	res := run(t, cfg, nil, "whoami")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "AGRO_PUBLISHABLE_KEY")
}
