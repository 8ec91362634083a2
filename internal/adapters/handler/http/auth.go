package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// OrganizerEmailKey holds the organizer email taken from a verified access token.
const OrganizerEmailKey contextKey = "organizer_email"

// OrganizerAuth accepts an HS256 access token from the Authorization header
// or the access_token cookie and stores its email claim in the request context.
func OrganizerAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				http.Error(w, "Unauthorized: missing access token", http.StatusUnauthorized)
				return
			}

			email, err := organizerEmail(raw, secret)
			if err != nil {
				http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OrganizerEmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func organizerEmail(raw string, secret []byte) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("invalid access token: %w", err)
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return "", errors.New("access token has no email claim")
	}
	return email, nil
}

func organizerFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(OrganizerEmailKey).(string)
	return email, ok && email != ""
}
