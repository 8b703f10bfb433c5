package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/constants"
)

// Provide injects a static value into every request context under the given
// key. Used to hand the application and the database pool to controllers.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestParams records the transport-level request attributes used by
// composables further down the stack.
func RequestParams() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := &composables.Params{
				IP:        r.RemoteAddr,
				UserAgent: r.UserAgent(),
				Request:   r,
				Writer:    w,
			}
			ctx := composables.WithParams(r.Context(), params)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Cors(allowOrigins ...string) mux.MiddlewareFunc {
	return cors.New(cors.Options{
		AllowedOrigins:   allowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler
}
