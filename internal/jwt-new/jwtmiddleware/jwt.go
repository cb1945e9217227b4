package jwtmiddleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	security "github.com/linemk/clothing-shop/internal/jwt-new"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
)

type contextKey string

const IdentityKey contextKey = "identity"

const notAuthorized = "not authorized"

// TokenParser проверяет токен и возвращает личность владельца
type TokenParser interface {
	Parse(token string) (security.Identity, error)
}

// RequireSignIn создаёт middleware для проверки JWT; секрет живёт внутри parser.
// Любая ошибка токена отвечает одинаковым 401.
func RequireSignIn(log *slog.Logger, parser TokenParser) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/auth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				log.Debug("missing or malformed authorization header")
				unauthorized(w)
				return
			}

			identity, err := parser.Parse(tokenStr)
			if err != nil {
				log.Debug("token rejected", sl.Err(err))
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin пропускает только администратора. Ставится после RequireSignIn.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/admin"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !identity.IsAdmin() {
				log.Debug("admin access denied", slog.String("email", identity.Email))
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization (формат: "Bearer <token>").
// Заголовок "token" оставлен для старых клиентов.
func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return parts[1], true
	}
	if raw := strings.TrimSpace(r.Header.Get("token")); raw != "" {
		return raw, true
	}
	return "", false
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": notAuthorized,
	})
}

func WithIdentity(ctx context.Context, identity security.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext извлекает личность из контекста.
func IdentityFromContext(ctx context.Context) (security.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(security.Identity)
	return identity, ok
}

// FromContext извлекает userID из контекста. У администратора userID нет.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return identity.UserID, true
}
