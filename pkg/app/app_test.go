package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkgate/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		AppEnv:              "development",
		BaseURL:             "http://localhost:8080",
		DatabaseURL:         MemoryURL,
		AnalyticsURL:        MemoryURL,
		Dataset:             "app_test",
		SiteToken:           "0123456789abcdef-site",
		RedirectStatusCode:  http.StatusMovedPermanently,
		LinkCacheTTL:        time.Minute,
		SlugPattern:         regexp.MustCompile(config.DefaultSlugPattern),
		ReservedSlugs:       []string{"admin"},
		HTTPReadTimeout:     time.Second,
		HTTPWriteTimeout:    time.Second,
		HTTPShutdownTimeout: time.Second,
	}
}

func TestNew_DevelopmentMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(context.Background(), testConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))
	require.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "https://example.com", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/_health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	counts := a.Service().ClickCounts(context.Background(), []string{"test123"})
	assert.Equal(t, int64(1), counts["test123"])
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig()
	cfg.Dataset = "app_run_test"

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClose_ReleasesOnce(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig()
	cfg.Dataset = "app_close_test"

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)

	require.NotEmpty(t, a.closers)
	require.NoError(t, a.Close())
	require.Empty(t, a.closers)
	require.NoError(t, a.Close())
}
