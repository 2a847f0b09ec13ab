package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/model"
)

// OperatorSignatureHeader carries the base64 signature of the current challenge.
const OperatorSignatureHeader = "X-Operator-Signature"

// OperatorUser is the identity granted to the holder of the operator key.
var OperatorUser = model.User{
	ID:       "operator",
	Name:     "Operator",
	Provider: "ed25519",
	Role:     model.RoleAdmin,
}

// Ed25519AuthProvider lets the holder of the operator key trade a signature
// over a server-issued challenge for an admin access token. Each challenge can
// be used once.
type Ed25519AuthProvider struct {
	publicKey  ed25519.PublicKey
	headerName string
	user       model.User
	tokens     *JWTProvider

	mu        sync.RWMutex
	challenge []byte
}

// ParsePublicKey reads a PEM encoded PKIX Ed25519 public key.
func ParsePublicKey(publicKeyPEM string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key is not an Ed25519 public key")
	}
	return publicKey, nil
}

func NewEd25519AuthProvider(publicKeyPEM, headerName string, user model.User, tokens *JWTProvider) (*Ed25519AuthProvider, error) {
	publicKey, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	if headerName == "" {
		headerName = OperatorSignatureHeader
	}

	p := &Ed25519AuthProvider{
		publicKey:  publicKey,
		headerName: headerName,
		user:       user,
		tokens:     tokens,
	}
	if err := p.RefreshChallenge(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Ed25519AuthProvider) GetChallenge() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.challenge
}

func (p *Ed25519AuthProvider) RefreshChallenge() error {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		authLogger.Error().Err(err).Msg("Failed to generate challenge")
		return fmt.Errorf("failed to generate challenge: %w", err)
	}
	p.mu.Lock()
	p.challenge = challenge
	p.mu.Unlock()
	return nil
}

// Verify checks signature against the current challenge and consumes the
// challenge when it matches.
func (p *Ed25519AuthProvider) Verify(signature []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !ed25519.Verify(p.publicKey, p.challenge, signature) {
		return false
	}

	next := make([]byte, 32)
	if _, err := rand.Read(next); err != nil {
		authLogger.Error().Err(err).Msg("Failed to rotate challenge")
		return false
	}
	p.challenge = next
	return true
}

func (p *Ed25519AuthProvider) writeChallenge(w http.ResponseWriter) {
	apperr.WriteJSON(w, http.StatusOK, map[string]string{
		"challenge": base64.StdEncoding.EncodeToString(p.GetChallenge()),
	})
}

// ServeChallenge returns the current challenge.
func (p *Ed25519AuthProvider) ServeChallenge(w http.ResponseWriter, r *http.Request) {
	p.writeChallenge(w)
}

// ServeRefreshChallenge issues a new challenge.
func (p *Ed25519AuthProvider) ServeRefreshChallenge(w http.ResponseWriter, r *http.Request) {
	if err := p.RefreshChallenge(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to refresh challenge")
		apperr.WriteMessage(w, http.StatusInternalServerError, config.ErrRefreshChallenge)
		return
	}
	p.writeChallenge(w)
}

// ServeLogin verifies the signature header and answers with an admin access
// token, also stored in the session cookie.
func (p *Ed25519AuthProvider) ServeLogin(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	header := r.Header.Get(p.headerName)
	if header == "" {
		apperr.Write(w, r, apperr.Unauthorized(config.ErrAuthHeaderRequired))
		return
	}

	signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		apperr.Write(w, r, apperr.Unauthorized(config.ErrInvalidSignatureFormat))
		return
	}

	if !p.Verify(signature) {
		apperr.Write(w, r, apperr.Unauthorized(config.ErrInvalidSignature))
		return
	}

	token, err := p.tokens.Mint(p.user)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	p.tokens.SetCookie(w, r, token)

	l.Info().Str("user_id", string(p.user.ID)).Msg("Operator signed in")
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"accessToken": token,
		"user":        p.user,
	})
}
