package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/model"
	"github.com/yabood/yabood/internal/profile"
)

const clerkSessionCookie = "__session"

// ClerkAuthProvider accepts sessions issued by Clerk. The Clerk middleware
// verifies the session token; Authenticate turns the verified claims into a
// user and the user webhook mirrors accounts into the profile store.
type ClerkAuthProvider struct {
	profiles    profile.Store
	adminDomain string
	getUser     func(ctx context.Context, id string) (*clerk.User, error)
	now         func() time.Time

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string, profiles profile.Store, adminDomain string) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		profiles:    profiles,
		adminDomain: adminDomain,
		getUser:     clerkuser.Get,
		now:         time.Now,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(clerkSessionCookie)
			if err != nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

// WithHeaderAuthorization verifies Clerk session tokens from the
// Authorization header or the __session cookie.
func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkAuthProvider) Authenticate(r *http.Request) (model.User, error) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return model.User{}, ErrNoCredentials
	}

	usr, err := c.getUser(r.Context(), claims.Subject)
	if err != nil {
		return model.User{}, err
	}
	return c.userFor(usr), nil
}

func (c *ClerkAuthProvider) userFor(usr *clerk.User) model.User {
	email := primaryEmail(usr)
	return model.User{
		ID:       model.UserID(usr.ID),
		Email:    email,
		Name:     displayName(usr),
		Provider: "clerk",
		Role:     model.RoleForEmail(email, c.adminDomain),
	}
}

func primaryEmail(usr *clerk.User) string {
	for _, e := range usr.EmailAddresses {
		if e == nil {
			continue
		}
		if usr.PrimaryEmailAddressID != nil && e.ID == *usr.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(usr.EmailAddresses) > 0 && usr.EmailAddresses[0] != nil {
		return usr.EmailAddresses[0].EmailAddress
	}
	return ""
}

func displayName(usr *clerk.User) string {
	var parts []string
	if usr.FirstName != nil && *usr.FirstName != "" {
		parts = append(parts, *usr.FirstName)
	}
	if usr.LastName != nil && *usr.LastName != "" {
		parts = append(parts, *usr.LastName)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if usr.Username != nil {
		return *usr.Username
	}
	return ""
}

type clerkEvent struct {
	Data clerk.User `json:"data"`
	Type string     `json:"type"`
}

// HandleWebhookUser mirrors Clerk user events into the profile store.
// TODO: verify the svix signature headers before trusting the payload.
func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	var payload clerkEvent
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apperr.Write(w, r, apperr.Validation("Bad request"))
		return
	}
	usr := &payload.Data
	if usr.ID == "" {
		apperr.Write(w, r, apperr.Validation("Missing user id"))
		return
	}
	l.Info().Str("type", payload.Type).Str("user_id", usr.ID).Msg("User webhook received")

	switch payload.Type {
	case "user.created", "user.updated":
		if err := c.upsert(r.Context(), usr); err != nil {
			apperr.Write(w, r, apperr.Upstream("Error saving user", err))
			return
		}
		if payload.Type == "user.created" {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "user.deleted":
		if err := c.profiles.Delete(r.Context(), usr.ID); err != nil {
			apperr.Write(w, r, apperr.Upstream("Error deleting user", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		apperr.Write(w, r, apperr.Validation("Invalid event type"))
	}
}

func (c *ClerkAuthProvider) upsert(ctx context.Context, usr *clerk.User) error {
	now := c.now().UTC()
	p, err := c.profiles.Get(ctx, usr.ID)
	if errors.Is(err, profile.ErrNotFound) {
		p = profile.Profile{CreatedAt: now}
	} else if err != nil {
		return err
	}

	u := c.userFor(usr)
	p.ID = usr.ID
	p.UserID = u.ID
	p.Email = u.Email
	p.Name = u.Name
	p.Provider = u.Provider
	p.Role = u.Role
	p.UpdatedAt = now
	return c.profiles.Put(ctx, p)
}
