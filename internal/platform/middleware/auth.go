package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"tenantguard/pkg/requestcontext"
)

// RequireBearer extracts the bearer token into the request context for the
// claim source to parse. Requests without an Authorization header are
// rejected here; whether the token actually yields a usable claim set is
// the resolver's call, and its failures surface as the same opaque denial.
func RequireBearer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(r.Context(), "missing bearer token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			ctx := requestcontext.WithBearerToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
