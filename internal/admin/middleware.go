package admin

import (
	"context"
	"net/http"
	"strings"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/httputil"
)

type contextKey string

const claimsKey contextKey = "admin_claims"

func AdminAuthMiddleware(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httputil.WriteError(w, apperr.New(apperr.KindUnauthorized, "missing bearer token"))
				return
			}
			claims, err := tokens.Parse(parts[1])
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRight(right string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(claimsKey).(*Claims)
			if claims == nil || !claims.HasRight(right) {
				httputil.WriteError(w, apperr.New(apperr.KindForbidden, "insufficient rights"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Username is the authenticated admin, or "" outside the admin routes.
func Username(r *http.Request) string {
	claims, _ := r.Context().Value(claimsKey).(*Claims)
	if claims == nil {
		return ""
	}
	return claims.Username
}
