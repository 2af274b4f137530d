package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// orgScopeKey is the context key for the requested organization scope.
const orgScopeKey contextKey = "organization_scope"

// OrganizationScope extracts the organization scope from the request.
// It checks the X-Organization-Id header, then the organizationPlatformId
// query parameter. Empty means "all of the caller's organizations".
func OrganizationScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := strings.TrimSpace(r.Header.Get("X-Organization-Id"))
		if scope == "" {
			scope = strings.TrimSpace(r.URL.Query().Get("organizationPlatformId"))
		}

		ctx := context.WithValue(r.Context(), orgScopeKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOrganizationScope retrieves the organization scope from the request
// context. Empty when the request is not organization-scoped.
func GetOrganizationScope(ctx context.Context) string {
	if v, ok := ctx.Value(orgScopeKey).(string); ok {
		return v
	}
	return ""
}
