package adminhttp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// requireBearerToken builds a chi middleware enforcing an HS256-signed
// bearer token on every request it wraps. Admin HTTP binds to localhost
// only (see NewRouter's caller), so this is a second layer for operators
// who put a reverse proxy in front of it; when secret is empty the
// middleware is a no-op, matching the surface's off-by-default posture.
func requireBearerToken(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			if err := validateBearerToken(tokenString, secret); err != nil {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}

// validateBearerToken checks tokenString's HMAC signature and expiry
// against secret. The token's claims carry no broker-specific data: the
// surface this guards is a single operator-facing role, not a
// multi-subject API, so presence of a validly signed, unexpired token is
// the whole authorization decision.
func validateBearerToken(tokenString, secret string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
