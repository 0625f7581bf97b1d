package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"trailhead/apperr"
	"trailhead/globals"
	"trailhead/metrics"
	"trailhead/utils"
)

const maxBodyBytes = 10 << 20

// SecurityHeaders sets the usual hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-site")
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger tags each request with an id, recovers panics and logs one line per
// request. Errors passed to utils.RespondWithAppError are attached to that line.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = utils.GetUUID()
			}
			w.Header().Set("X-Request-ID", reqID)
			r = r.WithContext(context.WithValue(r.Context(), globals.RequestIDKey, reqID))

			crw := NewStatusRecorder(w)
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(logrus.Fields{
						"requestId": reqID,
						"panic":     rec,
						"stack":     string(debug.Stack()),
					}).Error("panic while serving request")
					if !crw.wroteHeader {
						utils.RespondWithError(crw, http.StatusInternalServerError, "internal server error")
					}
				}

				elapsed := time.Since(start)
				metrics.RequestDuration.WithLabelValues(r.Method, strconv.Itoa(crw.Status())).Observe(elapsed.Seconds())

				entry := log.WithFields(logrus.Fields{
					"requestId": reqID,
					"method":    r.Method,
					"path":      r.URL.Path,
					"status":    crw.Status(),
					"duration":  elapsed.String(),
					"remote":    r.RemoteAddr,
				})
				if err := crw.Err(); err != nil {
					kind := apperr.KindOf(err)
					entry = entry.WithError(err).WithField("kind", kind)
					if kind == apperr.KindInternal {
						if stack := apperr.StackOf(err); stack != "" {
							entry = entry.WithField("stack", stack)
						}
					}
				}
				switch {
				case crw.Status() >= 500:
					entry.Error("request failed")
				case crw.Status() >= 400:
					entry.Warn("request rejected")
				default:
					entry.Info("request served")
				}
			}()

			next.ServeHTTP(crw, r)
		})
	}
}
