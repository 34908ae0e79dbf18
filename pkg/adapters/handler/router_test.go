package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkgate/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/linkgate/pkg/config"
	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/core/ratelimit"
	"github.com/wadjakorntonsri/linkgate/pkg/core/services"
)

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()

	store := memory.New()
	require.NoError(t, memory.Seed(context.Background(), store, time.Now()))
	require.NoError(t, store.Put(context.Background(), "link:vault", &domain.Link{
		ID: "vault1", URL: "https://vault.example", Slug: "vault", Password: "open-sesame",
	}))

	cfg := &config.Config{
		BaseURL:       "https://go.example",
		SiteToken:     testSiteToken,
		SlugPattern:   regexp.MustCompile(config.DefaultSlugPattern),
		ReservedSlugs: []string{"admin"},
	}

	logger := discardLogger()
	resolver := services.NewResolver(services.ResolverConfig{
		SlugPattern:   cfg.SlugPattern,
		ReservedSlugs: cfg.ReservedSlugs,
	}, store, nil, nil, logger)
	service := services.NewLinkService(services.LinkServiceConfig{}, store, nil, logger)

	router := NewRouter(RouterDeps{
		Config:   cfg,
		Service:  service,
		Resolver: resolver,
		Limiter:  ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.DefaultLimit, ratelimit.DefaultWindow),
		Logger:   logger,
	})
	return router, store
}

func TestRouter_Redirects(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))
	require.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "https://example.com", rr.Header().Get("Location"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/Quantum-AI/", nil))
	require.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "https://openai.com", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/vault", nil))
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/protected/vault", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_API(t *testing.T) {
	router, store := newTestRouter(t)

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := do("GET", "/api/_health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("X-RateLimit-Limit"))

	rr = do("GET", "/api/verify", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do("GET", "/api/verify", "", testSiteToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"name":"linkgate","url":"https://go.example"}`, rr.Body.String())

	rr = do("POST", "/api/verify-password", `{"slug":"vault","password":"open-sesame"}`, testSiteToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"url":"https://vault.example"}`, rr.Body.String())

	rr = do("GET", "/api/link/clicks?ids=test123", "", testSiteToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{}`, rr.Body.String())

	rr = do("POST", "/api/link/bulk-delete", `{"slugs":["test"]}`, testSiteToken)
	require.Equal(t, http.StatusOK, rr.Code)

	link, err := store.Get(context.Background(), "link:test", 0)
	require.NoError(t, err)
	assert.Nil(t, link)

	rr = do("GET", "/test", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
