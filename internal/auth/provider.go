// Package auth resolves who a request acts for. Callers sign in through an
// OAuth provider, the hosted session provider or the operator key and carry
// an access token minted here.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/model"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

// ErrNoCredentials is returned by a provider when the request carries nothing
// it understands. Other errors mean credentials were present but rejected.
var ErrNoCredentials = errors.New("no credentials")

type AuthProvider interface {
	Authenticate(r *http.Request) (model.User, error)
}

type contextKey int

const (
	userKey contextKey = iota
	authErrKey
)

func ContextWithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey).(model.User)
	return u, ok
}

// Middleware resolves the caller with the first provider that accepts the
// request. Requests without credentials pass through anonymously; rejected
// credentials are remembered so the guards can report them.
func Middleware(providers ...AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var rejected error
			for _, p := range providers {
				u, err := p.Authenticate(r)
				if err == nil {
					l := zerolog.Ctx(r.Context()).With().Str("user_id", string(u.ID)).Logger()
					ctx := ContextWithUser(l.WithContext(r.Context()), u)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				if !errors.Is(err, ErrNoCredentials) && rejected == nil {
					rejected = err
				}
			}

			if rejected != nil {
				zerolog.Ctx(r.Context()).Debug().Err(rejected).Msg("Credentials rejected")
				r = r.WithContext(context.WithValue(r.Context(), authErrKey, rejected))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser answers 401 unless the request carries a valid identity.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			apperr.Write(w, r, unauthorized(r))
			return
		}
		next(w, r)
	}
}

// RequireAdmin answers 401 for anonymous callers and 403 for non-admins.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			apperr.Write(w, r, unauthorized(r))
			return
		}
		if !u.IsAdmin() {
			apperr.Write(w, r, apperr.Forbidden(config.ErrAdminRequired))
			return
		}
		next(w, r)
	}
}

func unauthorized(r *http.Request) error {
	if _, ok := r.Context().Value(authErrKey).(error); ok {
		return apperr.Unauthorized(config.ErrInvalidToken)
	}
	return apperr.Unauthorized(config.ErrMissingAuthHeader)
}
