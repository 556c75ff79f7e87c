package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	sessions     SessionManager
	limits       httpx.RateLimitProfiles
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	checks       map[string]store.Pinger
	clientIP     httpx.KeyExtractor
}

func NewRouter(
	sessions SessionManager,
	limits httpx.RateLimitProfiles,
	buildVersion string,
	logger *slog.Logger,
	checks map[string]store.Pinger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		sessions:     sessions,
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		checks:       checks,
		clientIP:     limits.ClientIP(),
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

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Session Authority API
//	@version		0.1.0
//	@description	Email and password accounts with short lived access tokens and single use, rotating refresh tokens.
//	@description
//	@description				Tokens are HS256 JWTs. Access and refresh tokens are signed with different secrets.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/sessionauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.sessions, ClientIP: r.clientIP}

	// Credential endpoints are strict by IP
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.limits.Strict, r.clientIP),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.limits.Strict, r.clientIP),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.limits.Moderate, r.clientIP),
		),
	)
}

func (r *Router) registerSessions() {
	h := &AuthHandler{Sessions: r.sessions, ClientIP: r.clientIP}

	secured := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.sessions),
			httpx.RateLimitByUser(limit, r.clientIP),
		)
	}

	r.Mux.Handle("POST /v1/auth/logout", secured(h.HandleLogout, r.limits.Moderate))
	r.Mux.Handle("POST /v1/auth/logout-all", secured(h.HandleLogoutAll, r.limits.Moderate))
	// Password guessing through a stolen access token stays strict
	r.Mux.Handle("POST /v1/auth/change-password", secured(h.HandleChangePassword, r.limits.Strict))
	r.Mux.Handle("GET /v1/auth/me", secured(h.HandleMe, r.limits.Lenient))
	r.Mux.Handle("GET /v1/auth/sessions", secured(h.HandleSessions, r.limits.Lenient))
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient, r.clientIP),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.checks),
			httpx.RateLimitByIP(r.limits.Lenient, r.clientIP),
		),
	)
}
