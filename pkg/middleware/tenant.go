package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/httpapi"
)

const TenantIDHeader = "X-Tenant-ID"

// RequireTenant resolves the tenant from the request header and stores it in
// the context. Tenant resolution normally belongs to the upstream identity
// gateway; the header contract is what that gateway forwards.
func RequireTenant() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(TenantIDHeader)
			if raw == "" {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", "missing "+TenantIDHeader+" header", nil)
				return
			}
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_INVALID", "malformed "+TenantIDHeader+" header", nil)
				return
			}
			ctx := composables.WithTenantID(r.Context(), tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenantFor guards only the paths under prefix. Health checks, metrics
// and static files stay reachable without a tenant header.
func RequireTenantFor(prefix string) mux.MiddlewareFunc {
	requireTenant := RequireTenant()
	return func(next http.Handler) http.Handler {
		guarded := requireTenant(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				guarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
