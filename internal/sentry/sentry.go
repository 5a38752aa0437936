package sentry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// Options configures error reporting for one process. Component ("server",
// "worker", "ctl") is attached to every event as a tag.
type Options struct {
	DSN       string
	Env       string
	Service   string
	Version   string
	Component string
}

// Init configures the global Sentry client. An empty DSN disables reporting.
func Init(opts Options) error {
	if opts.DSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Env,
		ServerName:       opts.Service,
		Release:          opts.Version,
		AttachStacktrace: true,
		TracesSampleRate: 0.0, // tracing goes through OpenTelemetry
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	if opts.Component != "" {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("component", opts.Component)
		})
	}
	return nil
}

var sensitiveHeaders = []string{"Authorization", "Cookie", "Apikey", "X-Api-Key"}

// scrubEvent drops credentials from captured requests.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request == nil {
		return event
	}
	event.Request.Cookies = ""
	for _, h := range sensitiveHeaders {
		delete(event.Request.Headers, h)
		delete(event.Request.Headers, http.CanonicalHeaderKey(h))
	}
	return event
}

// Flush blocks until queued events are sent or timeout elapses.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover reports a panic in progress. Use with defer.
func Recover() {
	sentry.Recover()
}
