package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/core/ratelimit"
	"github.com/wadjakorntonsri/linkgate/pkg/core/services"
)

const (
	minTokenLength  = 16
	requestIDHeader = "X-Request-ID"

	corsAllowedMethods = "GET,POST,PUT,DELETE,OPTIONS"
	corsAllowedHeaders = "Content-Type, Authorization"
)

var bearerPrefix = regexp.MustCompile(`^Bearer\s+`)

type ctxKey int

const requestIDKey ctxKey = iota

// Resolver turns a request into a redirect directive.
type Resolver interface {
	Resolve(ctx context.Context, req services.ResolveRequest) services.Resolution
}

type Middleware struct {
	siteToken   string
	limiter     *ratelimit.Limiter
	resolver    Resolver
	logger      *slog.Logger
	corsOrigins []string
}

func NewMiddleware(siteToken string, limiter *ratelimit.Limiter, resolver Resolver, logger *slog.Logger, corsOrigins []string) *Middleware {
	return &Middleware{
		siteToken:   siteToken,
		limiter:     limiter,
		resolver:    resolver,
		logger:      logger,
		corsOrigins: corsOrigins,
	}
}

// AuthMiddleware requires the site token on the API namespace, except the
// internal /api/_ prefix. A supplied token shorter than 16 characters is
// rejected on every path.
func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)

		if isAPIRequest(r) && !strings.HasPrefix(r.URL.Path, "/api/_") {
			if len(m.siteToken) < minTokenLength {
				writeError(w, http.StatusInternalServerError,
					"Server configuration error: SITE_TOKEN must be set and at least 16 characters long")
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(m.siteToken)) != 1 {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}

		if token != "" && len(token) < minTokenLength {
			writeError(w, http.StatusUnauthorized, "Token must be at least 16 characters long")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware admits at most the limiter's quota per client per
// window on the API namespace.
func (m *Middleware) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAPIRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		d, err := m.limiter.Allow(r.Context(), ClientIdentifier(r))
		if err != nil {
			m.logger.WarnContext(r.Context(), "rate limit store failed", "err", err)
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.UnixMilli(), 10))

		if !d.Allowed {
			h.Set("Retry-After", strconv.FormatInt(d.RetryAfter, 10))
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RedirectMiddleware answers GET and HEAD requests that name a known slug.
// Everything else continues down the chain.
func (m *Middleware) RedirectMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		res := m.resolver.Resolve(r.Context(), services.ResolveRequest{
			Path:  r.URL.Path,
			Query: r.URL.Query(),
			Meta:  requestMeta(r),
		})

		switch res.Outcome {
		case services.Redirect:
			http.Redirect(w, r, res.Location, res.Status)
		case services.Page:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(res.Status)
			_, _ = w.Write(res.Body)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'self'; "+
			"script-src 'self' 'unsafe-inline'; "+
			"style-src 'self' 'unsafe-inline'; "+
			"img-src 'self' data: https: blob:; "+
			"font-src 'self' data:; "+
			"connect-src 'self'; "+
			"frame-ancestors 'none'; "+
			"base-uri 'self'; "+
			"form-action 'self'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), interest-cohort=()")

		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		next.ServeHTTP(w, r)
	})
}

// CORS applies the allowed-origins policy to the API namespace.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{})

	for _, origin := range m.corsOrigins {
		origin = normalizeOrigin(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			break
		}
		allowed[origin] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAPIRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		origin := normalizeOrigin(r.Header.Get("Origin"))
		allow := false

		if origin != "" {
			if allowAll {
				allow = true
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				allow = true
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			if !allow {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if allow {
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (m *Middleware) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

// Recover turns a panic into a 500.
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.ErrorContext(r.Context(), "panic recovered", "panic", rec, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ClientIdentifier keys the rate limiter: connecting IP, then the first
// forwarded-for hop, then a truncated bearer token. Anything else shares the
// "unknown" bucket.
func ClientIdentifier(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return "ip:" + ip
	}

	if ip := firstForwardedFor(r); ip != "" {
		return "ip:" + ip
	}

	if token := bearerToken(r); token != "" {
		return "token:" + token[:min(10, len(token))]
	}

	return "unknown"
}

func requestMeta(r *http.Request) domain.RequestMeta {
	ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP"))
	if ip == "" {
		ip = firstForwardedFor(r)
	}
	if ip == "" {
		ip = remoteHost(r)
	}

	return domain.RequestMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Language:  r.Header.Get("Accept-Language"),
	}
}

func bearerToken(r *http.Request) string {
	return bearerPrefix.ReplaceAllString(r.Header.Get("Authorization"), "")
}

func firstForwardedFor(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	return strings.TrimSpace(first)
}

func remoteHost(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
