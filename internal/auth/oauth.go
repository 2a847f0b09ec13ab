package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/model"
)

const (
	oauthSessionName = "yabood-oauth"

	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Identity is the account an OAuth provider reports after sign-in.
type Identity struct {
	ID    string
	Email string
	Name  string
}

type OAuthProvider struct {
	ID     string
	Name   string
	Config *oauth2.Config
	// Identify fetches the signed-in account using a client that carries the
	// provider's access token.
	Identify func(ctx context.Context, client *http.Client) (Identity, error)
}

// GitHubProvider signs in with GitHub. apiBase overrides the REST endpoint
// used to look up the account and may be empty.
func GitHubProvider(clientID, clientSecret, redirectURL, apiBase string) *OAuthProvider {
	return &OAuthProvider{
		ID:   "github",
		Name: "GitHub",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.GitHub,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
		},
		Identify: func(ctx context.Context, hc *http.Client) (Identity, error) {
			client := github.NewClient(hc)
			if apiBase != "" {
				u, err := url.Parse(strings.TrimSuffix(apiBase, "/") + "/")
				if err != nil {
					return Identity{}, err
				}
				client.BaseURL = u
			}

			u, _, err := client.Users.Get(ctx, "")
			if err != nil {
				return Identity{}, err
			}
			id := Identity{
				ID:    strconv.FormatInt(u.GetID(), 10),
				Email: u.GetEmail(),
				Name:  u.GetName(),
			}
			if id.Name == "" {
				id.Name = u.GetLogin()
			}
			if id.Email == "" {
				emails, _, err := client.Users.ListEmails(ctx, nil)
				if err != nil {
					return Identity{}, err
				}
				for _, e := range emails {
					if e.GetPrimary() && e.GetVerified() {
						id.Email = e.GetEmail()
						break
					}
				}
			}
			return id, nil
		},
	}
}

// GoogleProvider signs in with Google using the OpenID Connect userinfo
// endpoint at userInfoURL.
func GoogleProvider(clientID, clientSecret, redirectURL, userInfoURL string) *OAuthProvider {
	return &OAuthProvider{
		ID:   "google",
		Name: "Google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.Google,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		Identify: func(ctx context.Context, hc *http.Client) (Identity, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
			if err != nil {
				return Identity{}, err
			}
			resp, err := hc.Do(req)
			if err != nil {
				return Identity{}, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return Identity{}, fmt.Errorf("userinfo: %s", resp.Status)
			}

			var info struct {
				Sub   string `json:"sub"`
				Email string `json:"email"`
				Name  string `json:"name"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
				return Identity{}, err
			}
			return Identity{ID: info.Sub, Email: info.Email, Name: info.Name}, nil
		},
	}
}

// OAuthProviders builds the providers that have client credentials in cfg.
func OAuthProviders(cfg config.AuthConfig) []*OAuthProvider {
	base := strings.TrimSuffix(cfg.CallbackBaseURL, "/")
	var out []*OAuthProvider
	if cfg.GitHubClientID != "" {
		out = append(out, GitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, base+"/api/auth/callback/github", ""))
	}
	if cfg.GoogleClientID != "" {
		out = append(out, GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, base+"/api/auth/callback/google", GoogleUserInfoURL))
	}
	return out
}

// OAuth runs the authorization code flow and turns the signed-in account into
// an access token cookie. The state and return path live in a short-lived
// signed session cookie.
type OAuth struct {
	providers   map[string]*OAuthProvider
	order       []string
	store       sessions.Store
	tokens      *JWTProvider
	adminDomain string
}

func NewOAuth(tokens *JWTProvider, sessionSecret, adminDomain string, providers ...*OAuthProvider) *OAuth {
	key := []byte(sessionSecret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(err)
		}
		authLogger.Warn().Msg("No session secret set, OAuth sign-ins will not survive a restart")
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	o := &OAuth{
		providers:   make(map[string]*OAuthProvider, len(providers)),
		store:       store,
		tokens:      tokens,
		adminDomain: adminDomain,
	}
	for _, p := range providers {
		o.providers[p.ID] = p
		o.order = append(o.order, p.ID)
	}
	return o
}

type providerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SignInURL string `json:"signinUrl"`
}

func (o *OAuth) ServeProviders(w http.ResponseWriter, r *http.Request) {
	out := make([]providerInfo, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, providerInfo{
			ID:        id,
			Name:      o.providers[id].Name,
			SignInURL: "/api/auth/signin/" + id,
		})
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (o *OAuth) ServeSignIn(w http.ResponseWriter, r *http.Request) {
	p, ok := o.providers[r.PathValue("provider")]
	if !ok {
		apperr.Write(w, r, apperr.NotFound(config.ErrUnknownProvider))
		return
	}

	state := uuid.NewString()
	session, _ := o.store.Get(r, oauthSessionName)
	session.Values["state"] = state
	session.Values["provider"] = p.ID
	session.Values["redirect"] = safeRedirect(r.URL.Query().Get("callbackUrl"))
	if err := session.Save(r, w); err != nil {
		apperr.Write(w, r, err)
		return
	}

	http.Redirect(w, r, p.Config.AuthCodeURL(state), http.StatusFound)
}

func (o *OAuth) ServeCallback(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	p, ok := o.providers[r.PathValue("provider")]
	if !ok {
		apperr.Write(w, r, apperr.NotFound(config.ErrUnknownProvider))
		return
	}

	session, _ := o.store.Get(r, oauthSessionName)
	state, _ := session.Values["state"].(string)
	provider, _ := session.Values["provider"].(string)
	redirect, _ := session.Values["redirect"].(string)
	if state == "" || provider != p.ID || r.URL.Query().Get("state") != state {
		apperr.Write(w, r, apperr.Validation(config.ErrInvalidOAuthState))
		return
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		l.Warn().Err(err).Msg("Failed to clear OAuth session")
	}

	if e := r.URL.Query().Get("error"); e != "" {
		apperr.Write(w, r, apperr.Unauthorized("Sign-in was not completed: "+e))
		return
	}

	tok, err := p.Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		apperr.Write(w, r, apperr.Upstream("OAuth code exchange failed", err))
		return
	}
	id, err := p.Identify(r.Context(), p.Config.Client(r.Context(), tok))
	if err != nil {
		apperr.Write(w, r, apperr.Upstream("Failed to fetch account", err))
		return
	}

	user := model.User{
		ID:       model.UserID(id.ID),
		Email:    id.Email,
		Name:     id.Name,
		Provider: p.ID,
		Role:     model.RoleForEmail(id.Email, o.adminDomain),
	}
	token, err := o.tokens.Mint(user)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	o.tokens.SetCookie(w, r, token)
	l.Info().Str("provider", p.ID).Str("user_id", id.ID).Str("role", string(user.Role)).Msg("Signed in")

	if redirect == "" {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// ServeSession reports the caller and the access token held in the session
// cookie so browser code can send it as a bearer token.
func (o *OAuth) ServeSession(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(o.tokens.CookieName())
	if err != nil || c.Value == "" {
		apperr.WriteJSON(w, http.StatusOK, map[string]any{})
		return
	}
	claims, err := o.tokens.Parse(c.Value)
	if err != nil {
		o.tokens.ClearCookie(w, r)
		apperr.WriteJSON(w, http.StatusOK, map[string]any{})
		return
	}

	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"user":        claims.User(),
		"accessToken": c.Value,
		"expires":     claims.ExpiresAt.Time,
	})
}

func (o *OAuth) ServeSignOut(w http.ResponseWriter, r *http.Request) {
	o.tokens.ClearCookie(w, r)
	apperr.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// safeRedirect keeps only same-site absolute paths.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
