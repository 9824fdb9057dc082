package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/aussiebroadwan/agrowcrop/pkg/agrosdk"
	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/tidwall/gjson"
)

// Version is reported in client logs.
const Version = "v0.1.0"

const usageText = `usage: agrowcrop <command> [flags] [args]

commands:
  login [-code CODE] <phone>   request a code and sign in (type r at the prompt to resend)
  logout                       end the session and forget stored credentials
  whoami [-remote]             show the signed-in user
  get [-q PATH] <path>         GET an API path with the session token
  health                       show service readiness
`

// IO bundles the streams a command reads and writes.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO is the process's own streams.
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type client struct {
	cfg     Config
	logger  *slog.Logger
	io      IO
	in      *bufio.Reader
	session *agrosdk.Session
	sdk     *agrosdk.SDKClient
	api     *agrosdk.APIClient
}

// Main loads configuration from the environment and runs args.
func Main(ctx context.Context, args []string, streams IO) int {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(streams.Err, "agrowcrop: %v\n", err)
		return 2
	}
	return Run(ctx, cfg, args, streams)
}

// Run executes one command and returns the process exit code.
func Run(ctx context.Context, cfg Config, args []string, streams IO) int {
	if len(args) == 0 {
		fmt.Fprint(streams.Err, usageText)
		return 2
	}
	cmd, rest := args[0], args[1:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Fprint(streams.Out, usageText)
		return 0
	}

	logger := slogx.New(slogx.Config{
		Service: "agrowcrop-cli",
		Version: Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  streams.Err,
	})

	kv, err := OpenCredentialStore(cfg)
	if err != nil {
		fmt.Fprintf(streams.Err, "agrowcrop: open credential store: %v\n", err)
		return 1
	}

	session, err := agrosdk.NewSession(ctx,
		agrosdk.SessionConfig{PublishableKey: cfg.PublishableKey, TokenTemplate: cfg.TokenTemplate},
		agrosdk.WithCredentialStore(kv),
		agrosdk.WithLogger(logger),
	)
	if err != nil {
		_ = kv.Close()
		if errors.Is(err, agrosdk.ErrProviderRequired) {
			fmt.Fprintln(streams.Err, "agrowcrop: AGRO_PUBLISHABLE_KEY selects hosted sign-in, which this client cannot drive; unset it to use phone login")
			return 1
		}
		fmt.Fprintf(streams.Err, "agrowcrop: %v\n", err)
		return 1
	}
	defer session.Close()

	c := &client{
		cfg:     cfg,
		logger:  logger,
		io:      streams,
		in:      bufio.NewReader(streams.In),
		session: session,
		sdk:     agrosdk.NewSDKClient(cfg.APIBaseURL, logger),
		api:     agrosdk.NewAPIClient(cfg.APIBaseURL, session, logger),
	}

	switch cmd {
	case "login":
		err = c.login(ctx, rest)
	case "logout":
		err = c.logout(ctx)
	case "whoami":
		err = c.whoami(ctx, rest)
	case "get":
		err = c.get(ctx, rest)
	case "health":
		err = c.health(ctx)
	default:
		fmt.Fprintf(streams.Err, "agrowcrop: unknown command %q\n\n%s", cmd, usageText)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(streams.Err, "agrowcrop: %v\n", err)
		return 1
	}
}

func (c *client) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.io.Err)
	code := fs.String("code", "", "verification code, skips the prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: agrowcrop login [-code CODE] <phone>")
	}

	flow := agrosdk.NewOTPFlow(c.sdk, c.session, agrosdk.OTPFlowConfig{
		Production: c.cfg.Production(),
		OnDevCode: func(phone, code string) {
			fmt.Fprintf(c.io.Err, "OTP service unreachable. Development code for %s: %s\n", phone, code)
		},
	}, c.logger)

	if err := flow.RequestCode(ctx, fs.Arg(0)); err != nil {
		return err
	}

	if *code != "" {
		return c.verify(ctx, flow, *code)
	}

	for {
		c.prompt("Enter the code sent to %s (r to resend): ", flow.Phone())

		line, readErr := c.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return errors.New("no code entered")
			}
			return readErr
		}

		switch line {
		case "":
			continue
		case "r", "resend":
			if err := flow.Resend(ctx); err != nil {
				return fmt.Errorf("resend: %w", err)
			}
			fmt.Fprintln(c.io.Err, "Code re-sent.")
			continue
		}

		err := c.verify(ctx, flow, line)
		if err == nil {
			return nil
		}
		if !retryable(err) || readErr != nil {
			return err
		}
		fmt.Fprintf(c.io.Err, "%v, try again\n", err)
	}
}

func (c *client) verify(ctx context.Context, flow *agrosdk.OTPFlow, code string) error {
	if err := flow.VerifyCode(ctx, "", code); err != nil {
		return err
	}

	user := c.session.User()
	fmt.Fprintf(c.io.Out, "Signed in as %s (%s)\n", user.Phone, user.Role)
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, agrosdk.ErrInvalidCode) ||
		errors.Is(err, agrosdk.ErrCodeExpired) ||
		errors.Is(err, agrosdk.ErrAPIInvalidOTP)
}

// prompt writes to stderr only when a person is at the keyboard.
func (c *client) prompt(format string, args ...any) {
	f, ok := c.io.In.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return
	}
	fmt.Fprintf(c.io.Err, format, args...)
}

func (c *client) logout(ctx context.Context) error {
	if err := c.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.io.Out, "Signed out")
	return nil
}

func (c *client) whoami(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(c.io.Err)
	remote := fs.Bool("remote", false, "also ask the service who it thinks you are")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := c.session.Snapshot()
	if !v.IsAuthenticated {
		return agrosdk.ErrNotSignedIn
	}

	fmt.Fprintf(c.io.Out, "mode:  %s\n", v.Mode)
	if v.User != nil {
		fmt.Fprintf(c.io.Out, "phone: %s\n", v.User.Phone)
		fmt.Fprintf(c.io.Out, "role:  %s\n", v.User.Role)
	}
	if exp, ok := jwtx.ExpiresAt(v.Token); ok {
		fmt.Fprintf(c.io.Out, "token expires %s\n", humanize.Time(exp))
	}

	if *remote {
		me, err := c.api.Me(ctx)
		if err != nil {
			return fmt.Errorf("ask service: %w", err)
		}
		fmt.Fprintf(c.io.Out, "service sees %s as %s\n", me.Phone, me.Role)
	}
	return nil
}

func (c *client) get(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(c.io.Err)
	query := fs.String("q", "", "gjson path to print instead of the whole body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: agrowcrop get [-q PATH] <path>")
	}

	path := fs.Arg(0)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := c.api.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}

	if *query != "" {
		r := gjson.GetBytes(body, *query)
		if !r.Exists() {
			return fmt.Errorf("%q not found in response", *query)
		}
		fmt.Fprintln(c.io.Out, r.String())
		return nil
	}

	if gjson.ValidBytes(body) {
		fmt.Fprint(c.io.Out, gjson.GetBytes(body, "@pretty").Raw)
		return nil
	}
	_, err = c.io.Out.Write(body)
	return err
}

func (c *client) health(ctx context.Context) error {
	h, err := c.sdk.GetReadiness(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.io.Out, "status:  %s\nversion: %s\nuptime:  %s\n", h.Status, h.Version, h.Uptime)
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.io.Out, "  %s: %s\n", name, h.Checks[name])
	}
	return nil
}
