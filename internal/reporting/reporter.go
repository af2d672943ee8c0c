// Package reporting collects failures of best-effort work (notifications,
// audit entries, background jobs) that never reach the HTTP caller.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

type Reporter interface {
	Report(ctx context.Context, op string, err error, fields map[string]string)
}

type LogReporter struct {
	log    zerolog.Logger
	sentry bool
}

// New returns a reporter that logs every failure and, when Sentry has been
// initialised, captures it there as well.
func New(log zerolog.Logger, sentryEnabled bool) *LogReporter {
	return &LogReporter{log: log, sentry: sentryEnabled}
}

func InitSentry(dsn, env string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		SampleRate:       1.0,
		AttachStacktrace: true,
		ServerName:       "lpr-service",
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

func (r *LogReporter) Report(ctx context.Context, op string, err error, fields map[string]string) {
	if err == nil {
		return
	}

	event := r.log.Error().Err(err).Str("operation", op)
	for k, v := range fields {
		event = event.Str(k, v)
	}
	event.Msg("best-effort operation failed")

	if !r.sentry {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("operation", op)
		for k, v := range fields {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}
