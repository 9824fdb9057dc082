package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/agrowcrop/internal/otp/service"
	"github.com/aussiebroadwan/agrowcrop/internal/otp/store"
	"github.com/aussiebroadwan/agrowcrop/pkg/httpx"
	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	OTPService   *service.OTPService
	TokenService *service.TokenService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOTP()
	r.registerSession()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOTP() {
	h := &OTPHandler{
		OTPService:   r.OTPService,
		TokenService: r.TokenService,
	}

	// POST /send-otp - strict limit per IP+phone, moderate per IP
	r.Mux.Handle("POST /api/auth/send-otp",
		httpx.Chain(http.HandlerFunc(h.HandleSend),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "phone"),
		),
	)

	// POST /verify-otp - moderate per IP+phone, attempts are also capped per challenge
	r.Mux.Handle("POST /api/auth/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIPAndJSONField(httpx.ModerateLimit, "phone"),
		),
	)
}

func (r *Router) registerSession() {
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(MeHandler(),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes get a generous limit, orchestrators poll often
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
}
