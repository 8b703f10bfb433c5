package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/configuration"
)

type statusWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func getRealIP(r *http.Request, conf *configuration.Configuration) string {
	if len(r.Header.Get(conf.RealIPHeader)) > 0 {
		return r.Header.Get(conf.RealIPHeader)
	}
	return r.RemoteAddr
}

func getRequestID(r *http.Request, conf *configuration.Configuration) string {
	if len(r.Header.Get(conf.RequestIDHeader)) > 0 {
		return r.Header.Get(conf.RequestIDHeader)
	}
	return uuid.New().String()
}

// WithLogger installs a per-request *logrus.Entry carrying the request id,
// method, path and client address, and logs every completed request with its
// status and duration.
func WithLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conf := configuration.Use()
			start := time.Now()

			entry := logger.WithFields(logrus.Fields{
				"request-id": getRequestID(r, conf),
				"method":     r.Method,
				"path":       r.URL.Path,
				"host":       r.Host,
				"ip":         getRealIP(r, conf),
			})

			sw := &statusWriter{ResponseWriter: w}
			ctx := composables.WithLogger(r.Context(), entry)

			defer func() {
				if rec := recover(); rec != nil {
					entry.WithField("panic", rec).Error("request panicked")
					if !sw.statusWritten {
						http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					}
					return
				}
				entry.WithFields(logrus.Fields{
					"status":   sw.Status(),
					"duration": time.Since(start).String(),
				}).Info("request completed")
			}()

			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}
