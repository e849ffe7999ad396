package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/sessiondb"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	tokenKey
)

// TokenLookup resolves a raw bearer token.
type TokenLookup interface {
	Lookup(raw string) (*sessiondb.Session, bool)
}

// RequireBearer rejects requests without a live bearer session with 401 and
// stores the session's user ID in the request context.
func RequireBearer(sessions TokenLookup, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			ses, ok := sessions.Lookup(raw)
			if !ok {
				log.Debug("rejected bearer token", logger.String("path", r.URL.Path))
				utils.WriteError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, ses.UserID)
			ctx = context.WithValue(ctx, tokenKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserID returns the user resolved by RequireBearer.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// Token returns the raw bearer token resolved by RequireBearer.
func Token(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey).(string)
	return tok
}
