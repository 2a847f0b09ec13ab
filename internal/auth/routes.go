package auth

import (
	"fmt"
	"net/http"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/profile"
)

// Routes is the set of auth components to expose. Nil components have no
// routes.
type Routes struct {
	Tokens   *JWTProvider
	Profiles profile.Store
	OAuth    *OAuth
	Operator *Ed25519AuthProvider
	Clerk    *ClerkAuthProvider
}

// RegisterRoutes mounts the auth API. The identity routes expect the mux to
// be wrapped in Middleware.
func RegisterRoutes(mux *http.ServeMux, rt Routes) {
	mux.HandleFunc("GET /api/auth/me", RequireUser(ServeMe))
	mux.HandleFunc("GET /api/admin/users", RequireAdmin(ServeUsers(rt.Profiles)))

	if rt.Tokens != nil {
		bridge := NewBridge(rt.Tokens, rt.Profiles)
		mux.Handle("POST /api/auth/verify", bridge)
		mux.Handle("OPTIONS /api/auth/verify", bridge)
	}

	if rt.OAuth != nil {
		mux.HandleFunc("GET /api/auth/providers", rt.OAuth.ServeProviders)
		mux.HandleFunc("GET /api/auth/signin/{provider}", rt.OAuth.ServeSignIn)
		mux.HandleFunc("GET /api/auth/callback/{provider}", rt.OAuth.ServeCallback)
		mux.HandleFunc("GET /api/auth/session", rt.OAuth.ServeSession)
		mux.HandleFunc("POST /api/auth/signout", rt.OAuth.ServeSignOut)
	}

	if rt.Operator != nil {
		mux.HandleFunc("GET /api/auth/challenge", rt.Operator.ServeChallenge)
		mux.HandleFunc("POST /api/auth/challenge", rt.Operator.ServeRefreshChallenge)
		mux.HandleFunc("POST /api/auth/operator", rt.Operator.ServeLogin)
	}

	if rt.Clerk != nil {
		mux.HandleFunc("POST /api/auth/webhook/clerk", rt.Clerk.HandleWebhookUser)
	}
}

func ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"user":    u,
		"message": fmt.Sprintf("Hello %s! Your role is: %s", u.Name, u.Role),
	})
}

// ServeUsers lists the stored profiles.
func ServeUsers(profiles profile.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := []profile.Profile{}
		if profiles != nil {
			list, err := profiles.List(r.Context())
			if err != nil {
				apperr.Write(w, r, apperr.Upstream("Failed to list users", err))
				return
			}
			users = list
		}
		apperr.WriteJSON(w, http.StatusOK, map[string]any{
			"users":   users,
			"message": "Admin access granted - here are all users",
		})
	}
}
