package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/profile"
)

const (
	ActionVerify      = "verify"
	ActionSaveProfile = "saveProfile"
)

// Bridge lets clients that only hold an access token check it and store the
// profile that belongs to it.
type Bridge struct {
	tokens   *JWTProvider
	profiles profile.Store
	now      func() time.Time
}

func NewBridge(tokens *JWTProvider, profiles profile.Store) *Bridge {
	return &Bridge{tokens: tokens, profiles: profiles, now: time.Now}
}

type bridgeRequest struct {
	Token   string         `json:"token"`
	Action  string         `json:"action"`
	Profile map[string]any `json:"profile"`
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req bridgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, r, apperr.Validation("Invalid JSON body"))
		return
	}
	if req.Token == "" {
		apperr.WriteMessage(w, http.StatusUnauthorized, config.ErrNoToken)
		return
	}

	switch req.Action {
	case ActionVerify:
		b.verify(w, r, req.Token)
	case ActionSaveProfile:
		b.saveProfile(w, r, req.Token, req.Profile)
	default:
		apperr.WriteMessage(w, http.StatusBadRequest, config.ErrInvalidAction)
	}
}

func (b *Bridge) verify(w http.ResponseWriter, r *http.Request, token string) {
	claims, err := b.tokens.Parse(token)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Token verification failed")
		apperr.WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
			"error": config.ErrInvalidToken,
		})
		return
	}

	var user any = claims
	if b.profiles != nil {
		p, err := b.profiles.Get(r.Context(), claims.UserID)
		switch {
		case err == nil:
			user = p
		case !errors.Is(err, profile.ErrNotFound):
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("user_id", claims.UserID).Msg("Profile lookup failed")
		}
	}

	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user":  user,
	})
}

func (b *Bridge) saveProfile(w http.ResponseWriter, r *http.Request, token string, attrs map[string]any) {
	claims, err := b.tokens.Parse(token)
	if err != nil {
		apperr.WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
			"error": config.ErrInvalidToken,
		})
		return
	}
	if b.profiles == nil {
		apperr.WriteJSON(w, http.StatusInternalServerError, apperr.Body{
			Error:   config.ErrSaveProfile,
			Details: "profile store not configured",
		})
		return
	}

	now := b.now().UTC()
	p, err := b.profiles.Get(r.Context(), claims.UserID)
	if errors.Is(err, profile.ErrNotFound) {
		p = profile.Profile{CreatedAt: now}
	} else if err != nil {
		b.saveFailed(w, r, err)
		return
	}

	user := claims.User()
	p.ID = claims.UserID
	p.UserID = user.ID
	p.Email = user.Email
	p.Name = user.Name
	p.Provider = user.Provider
	p.Role = user.Role
	p.UpdatedAt = now
	p.Merge(attrs)

	if err := b.profiles.Put(r.Context(), p); err != nil {
		b.saveFailed(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("user_id", claims.UserID).Msg("Profile saved")
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"profile": p,
	})
}

func (b *Bridge) saveFailed(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("Profile save failed")
	apperr.WriteJSON(w, http.StatusInternalServerError, apperr.Body{
		Error:   config.ErrSaveProfile,
		Details: err.Error(),
	})
}
