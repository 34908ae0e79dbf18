package handler

import (
	"log/slog"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"

	"github.com/wadjakorntonsri/linkgate/pkg/config"
	"github.com/wadjakorntonsri/linkgate/pkg/core/ratelimit"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

type RouterDeps struct {
	Config   *config.Config
	Service  ports.LinkService
	Resolver Resolver
	Limiter  *ratelimit.Limiter
	Logger   *slog.Logger
	Pingers  []Pinger
}

// NewRouter creates and configures the main application router
func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config

	h := NewHTTPHandler(deps.Service, deps.Logger, cfg.BaseURL, deps.Pingers...)
	mw := NewMiddleware(cfg.SiteToken, deps.Limiter, deps.Resolver, deps.Logger, cfg.CORSAllowedOrigins)

	mux := http.NewServeMux()

	// Internal namespace, no token required
	mux.HandleFunc("GET /api/_health", h.Health)

	mux.HandleFunc("GET /api/verify", h.Verify)
	mux.HandleFunc("POST /api/verify-password", h.VerifyPassword)
	mux.HandleFunc("GET /api/link/clicks", h.Clicks)
	mux.HandleFunc("POST /api/link/bulk-delete", h.BulkDelete)

	// Outermost last: rate limit, security headers, resolver, auth.
	var handler http.Handler = mux
	handler = mw.AuthMiddleware(handler)
	handler = mw.RedirectMiddleware(handler)
	if cfg.APICORS {
		handler = mw.CORS(handler)
	}
	handler = mw.SecurityHeaders(handler)
	handler = mw.RateLimitMiddleware(handler)
	handler = mw.RequestLog(handler)
	handler = mw.RequestID(handler)
	handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	handler = mw.Recover(handler)

	return handler
}
