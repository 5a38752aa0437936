package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/socialchef/sizzle/internal/config"
)

type contextKey string

const UserIDKey contextKey = "userID"

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Issuer is the iss claim Supabase puts on tokens for the given project URL.
func Issuer(supabaseURL string) string {
	return strings.TrimRight(supabaseURL, "/") + "/auth/v1"
}

// ParseToken verifies a Supabase access token signed with the project's JWT
// secret and returns its subject. exp and sub are mandatory.
func ParseToken(tokenString, secret, issuer string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods(hmacMethods),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no sub claim")
	}
	return claims.Subject, nil
}

// IssueToken signs a token shaped like a Supabase session token. Local tooling
// and tests use it; production tokens come from Supabase Auth.
func IssueToken(secret, issuer, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{"authenticated"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// AuthMiddleware admits requests carrying a valid Supabase bearer token and
// stores the token subject in the request context.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	issuer := Issuer(cfg.SupabaseURL)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "AUTH_MISSING", "missing Authorization header")
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				unauthorized(w, "AUTH_MALFORMED", "Authorization header must be a bearer token")
				return
			}

			userID, err := ParseToken(raw, cfg.SupabaseJWTSecret, issuer)
			if err != nil {
				slog.DebugContext(r.Context(), "Rejected access token", "path", r.URL.Path, "error", err)
				unauthorized(w, "AUTH_INVALID_TOKEN", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDKey, userID)))
		})
	}
}

// GetUserID returns the authenticated subject, if the request passed AuthMiddleware.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func unauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="sizzle"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"type":  "AUTHENTICATION_ERROR",
		"code":  code,
	})
}
