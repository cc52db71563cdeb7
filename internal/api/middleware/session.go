package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SessionCookieName  = "session"
	SessionTokenHeader = "X-Session-Token"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken extracts the session token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// Tokens is the token service used by Session
type Tokens interface {
	Issue() (sessionID, token string, expiresAt time.Time, err error)
	Parse(token string) (string, error)
}

type contextKey string

const (
	SessionContextKey contextKey = "session"
)

// Session resolves the caller's session from its token. Requests without a
// valid token get a fresh session; the new token is returned both as a cookie
// and in the X-Session-Token header.
func Session(tokens Tokens, secureCookie bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := ExtractToken(r); tokenString != "" {
				sessionID, err := tokens.Parse(tokenString)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
					return
				}
				logger.Debug("discarding session token", zap.Error(err))
			}

			sessionID, token, expiresAt, err := tokens.Issue()
			if err != nil {
				logger.Error("failed to issue session token", zap.Error(err))
				respondError(w, "could not start session", http.StatusInternalServerError)
				return
			}

			SetSessionToken(w, token, expiresAt, secureCookie)
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// SetSessionToken hands a token to the client as a cookie and a header
func SetSessionToken(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionTokenHeader, token)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionContextKey, sessionID)
}

// GetSessionID retrieves the session id from the request context
func GetSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionContextKey).(string)
	return sessionID
}
