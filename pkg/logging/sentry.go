package logging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry configures the global Sentry client. An empty DSN disables
// reporting and is not an error. The returned func flushes pending events.
func InitSentry(dsn, environment string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: environment}); err != nil {
		return func() {}, err
	}

	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}

// SentryHandler forwards Warn records carrying an "err" attribute, and all
// Error records, to the Sentry hub bound to the context.
type SentryHandler struct {
	next slog.Handler
}

func NewSentryHandler(next slog.Handler) *SentryHandler {
	return &SentryHandler{next: next}
}

func (h *SentryHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SentryHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		report(ctx, r)
	}
	return h.next.Handle(ctx, r)
}

func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SentryHandler{next: h.next.WithAttrs(attrs)}
}

func (h *SentryHandler) WithGroup(name string) slog.Handler {
	return &SentryHandler{next: h.next.WithGroup(name)}
}

func report(ctx context.Context, r slog.Record) {
	var err error
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "err" {
			return true
		}
		if e, ok := a.Value.Any().(error); ok {
			err = e
			return false
		}
		return true
	})

	if err == nil && r.Level < slog.LevelError {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("log.message", r.Message)
		if err == nil {
			err = errors.New(r.Message)
		}
		hub.CaptureException(err)
	})
}
