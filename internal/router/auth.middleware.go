package router

import (
	"context"
	"net/http"
	"strings"

	"medportal/pkg/jwtutil"
	"medportal/pkg/response"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// RequireAuth rejects requests without a valid bearer session token.
// Temporary purpose-scoped tokens are not accepted here.
func RequireAuth(tokens *jwtutil.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				response.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				response.Error(w, http.StatusUnauthorized, err.Error())
				return
			}
			if claims.IsTemp {
				response.Error(w, http.StatusUnauthorized, "temporary token not accepted")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified token claims, if any.
func ClaimsFromContext(ctx context.Context) (*jwtutil.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*jwtutil.Claims)
	return claims, ok
}
