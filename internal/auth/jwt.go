package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yabood/yabood/internal/model"
)

// Claims is the access token payload.
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) User() model.User {
	role := model.Role(c.Role)
	if role == "" {
		role = model.RoleUser
	}
	return model.User{
		ID:       model.UserID(c.UserID),
		Email:    c.Email,
		Name:     c.Name,
		Provider: c.Provider,
		Role:     role,
	}
}

// JWTProvider mints and checks HS256 access tokens. Tokens are read from the
// Authorization bearer header first and the session cookie second.
type JWTProvider struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	now        func() time.Time
}

func NewJWTProvider(secret string, ttl time.Duration, cookieName string) (*JWTProvider, error) {
	if secret == "" {
		return nil, errors.New("auth secret is not set")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTProvider{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		now:        time.Now,
	}, nil
}

func (p *JWTProvider) TTL() time.Duration { return p.ttl }

func (p *JWTProvider) CookieName() string { return p.cookieName }

func (p *JWTProvider) Mint(u model.User) (string, error) {
	now := p.now()
	claims := Claims{
		UserID:   string(u.ID),
		Email:    u.Email,
		Name:     u.Name,
		Provider: u.Provider,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *JWTProvider) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (p *JWTProvider) Authenticate(r *http.Request) (model.User, error) {
	token := p.extract(r)
	if token == "" {
		return model.User{}, ErrNoCredentials
	}
	claims, err := p.Parse(token)
	if err != nil {
		return model.User{}, err
	}
	return claims.User(), nil
}

func (p *JWTProvider) extract(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if p.cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(p.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetCookie stores token in the session cookie for the token lifetime.
func (p *JWTProvider) SetCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(p.ttl.Seconds()),
	})
}

func (p *JWTProvider) ClearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   -1,
	})
}
