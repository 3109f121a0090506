package middleware

import (
	"net/http"
	"strings"
	"time"

	"livechat-backend/internal/session"
)

// ValidateAgentJWT guards the inbox routes. Identity extraction happens in
// the handlers; this only rejects requests without a valid agent token.
func ValidateAgentJWT() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get("Authorization")

			if tokenString == "" || !strings.HasPrefix(tokenString, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tokenString = tokenString[len("Bearer "):]

			claims, err := session.ParseToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			expires, ok := claims["exp"].(float64)
			if !ok || time.Now().Unix() > int64(expires) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			next(w, r)
		}
	}
}
