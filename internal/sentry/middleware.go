package sentry

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// HTTPMiddleware gives every request its own hub, recovers panics into a 500
// and reports 5xx responses.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		hub.Scope().SetRequest(r)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		ctx := sentry.SetHubOnContext(r.Context(), hub)

		defer func() {
			if err := recover(); err != nil {
				hub.RecoverWithContext(ctx, err)
				if !wrapped.wroteHeader {
					http.Error(wrapped, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
				return
			}
			if wrapped.statusCode >= http.StatusInternalServerError {
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("http.status_code", fmt.Sprint(wrapped.statusCode))
					hub.CaptureMessage(fmt.Sprintf("%s %s returned %d", r.Method, r.URL.Path, wrapped.statusCode))
				})
			}
		}()

		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
