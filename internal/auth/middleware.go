package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/cinebase/internal/catalog"
	"github.com/goliatone/cinebase/pkg/logging"
	"go.uber.org/zap"
)

const bearerPrefix = "bearer "

// Authenticate rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func Authenticate(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			id, err := tokens.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				message := "invalid token"
				if errors.Is(err, ErrTokenExpired) {
					message = "token has expired"
				}
				logging.L(r.Context()).Debug("token rejected", zap.Error(err))
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", message)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = logging.WithFields(ctx, zap.String("user_id", id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers that do not hold role. It must
// run after Authenticate.
func RequireRole(role catalog.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if id.Role != role {
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="cinebase"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
