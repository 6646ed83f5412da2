package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/internal/auth/store"
	"github.com/taskhive/taskhive-auth/pkg/httpx"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
	"github.com/taskhive/taskhive-auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
}

func NewRouter(codec *jwtx.Codec, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
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
	r.registerAuth()
	r.registerSessions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	register := &RegisterHandler{AuthService: r.AuthService}
	login := &LoginHandler{AuthService: r.AuthService}
	verify := &VerifyEmailHandler{AuthService: r.AuthService}
	resend := &ResendVerificationHandler{AuthService: r.AuthService}
	resetRequest := &ResetRequestHandler{AuthService: r.AuthService}
	resetComplete := &ResetCompleteHandler{AuthService: r.AuthService}

	// Everything that mints tokens or sends mail sits behind the strict
	// per-IP budget.
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(register, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(login, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/verify-email",
		httpx.Chain(verify, httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("POST /auth/resend-verification",
		httpx.Chain(resend, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/reset-password-request",
		httpx.Chain(resetRequest, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(resetComplete, httpx.RateLimitByIP(httpx.ModerateLimit)))
}

func (r *Router) registerSessions() {
	me := &MeHandler{Store: r.store}

	r.Mux.Handle("GET /auth/me",
		httpx.Chain(me,
			httpx.RateLimitByIP(httpx.LenientLimit),
			httpx.AuthnMiddleware(r.codec),
		))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit)))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit)))
}
