package middleware

import (
	"net/http"
	"strings"

	"github.com/hearsayhq/hearsay/internal/auth"
)

// Authenticate validates a Bearer token when present and stores the
// user id in the request context. Requests without a token pass through
// anonymously; listing endpoints serve both.
func Authenticate(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil || claims.Type != auth.TokenTypeAccess {
				// A presented-but-invalid token is rejected rather than
				// silently downgraded to anonymous.
				ctx := SetErrorCode(r.Context(), "auth_failed")
				r = r.WithContext(ctx)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"code":"auth_failed","message":"Invalid or expired token"}}`))
				return
			}

			ctx := SetUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that have no authenticated user.
// Must run inside Authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			ctx := SetErrorCode(r.Context(), "auth_required")
			r = r.WithContext(ctx)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"auth_required","message":"Authentication required"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
