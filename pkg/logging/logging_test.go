package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *capturedEvents) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturedEvents) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func hubContext(t *testing.T) (context.Context, *capturedEvents) {
	t.Helper()

	captured := &capturedEvents{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        "https://public@example.com/1",
		BeforeSend: captured.beforeSend,
	})
	require.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub), captured
}

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Level: "debug", Output: &buf})
	defer closer.Close()

	logger.Debug("hello", "slug", "demo")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "demo", line["slug"])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Level: "warn", Output: &buf})

	logger.Info("quiet")
	require.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestSentryHandler_ReportsDegradedAndErrors(t *testing.T) {
	ctx, captured := hubContext(t)

	var buf bytes.Buffer
	logger, _ := New(Options{Output: &buf})

	logger.InfoContext(ctx, "plain info", "err", errors.New("ignored at info"))
	logger.WarnContext(ctx, "warn without error")
	require.Zero(t, captured.len())

	logger.WarnContext(ctx, "click count failed", "err", errors.New("analytics down"))
	require.Equal(t, 1, captured.len())

	logger.ErrorContext(ctx, "render failed")
	require.Equal(t, 2, captured.len())

	child := logger.With("component", "resolver")
	child.WarnContext(ctx, "access log failed", "err", errors.New("dataset down"))
	require.Equal(t, 3, captured.len())
}

func TestInitSentry_EmptyDSN(t *testing.T) {
	flush, err := InitSentry("", "test")
	require.NoError(t, err)
	flush()
}
