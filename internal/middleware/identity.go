package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"luxe-store/internal/model"

	"github.com/rs/zerolog"
)

// Request headers carrying caller identity. The user id is set by the
// upstream gateway after authentication.
const (
	APIKeyHeader = "X-API-Key"
	UserIDHeader = "X-User-ID"
)

// Identity describes the caller of a request.
type Identity struct {
	UserID string
	Admin  bool
}

// Scope returns the set of orders the caller may read.
func (i Identity) Scope() model.OrderScope {
	return model.OrderScope{OwnerUserID: i.UserID, All: i.Admin}
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, or an anonymous one.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// Identify resolves the caller from request headers. A matching X-API-Key
// marks the caller as admin; a wrong key is rejected. Requests without a key
// pass through with the user id from X-User-ID, if any.
func Identify(apiKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{UserID: r.Header.Get(UserIDHeader)}

			if providedKey := r.Header.Get(APIKeyHeader); providedKey != "" {
				if apiKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
					logger.Warn().
						Str("path", r.URL.Path).
						Str("provided_key", providedKey[:min(8, len(providedKey))]).
						Msg("invalid API key")
					http.Error(w, "unauthorised: invalid API key", http.StatusUnauthorized)
					return
				}
				id.Admin = true
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin rejects callers that did not present the admin API key.
func RequireAdmin(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IdentityFrom(r.Context()).Admin {
				logger.Warn().Str("path", r.URL.Path).Msg("missing API key")
				http.Error(w, "unauthorised: missing API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// min returns the minimum of two integers.
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
