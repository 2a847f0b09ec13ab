package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/model"
)

const failedToCreateProvider = "Failed to create provider: %v"

// operatorKey returns a fresh key pair with the public half PEM encoded.
func operatorKey(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), priv
}

func newOperator(t *testing.T) (*Ed25519AuthProvider, ed25519.PrivateKey) {
	t.Helper()
	pemKey, priv := operatorKey(t)
	p, err := NewEd25519AuthProvider(pemKey, "", OperatorUser, newTokens(t))
	if err != nil {
		t.Fatalf(failedToCreateProvider, err)
	}
	return p, priv
}

func TestNewEd25519AuthProvider(t *testing.T) {
	pemKey, _ := operatorKey(t)

	testCases := []struct {
		name        string
		publicKey   string
		expectError string
	}{
		{
			name:      "Valid public key",
			publicKey: pemKey,
		},
		{
			name:        "Invalid PEM format",
			publicKey:   "invalid-pem-data",
			expectError: "failed to parse PEM block containing the public key",
		},
		{
			name: "PEM block that is not a key",
			publicKey: string(pem.EncodeToMemory(&pem.Block{
				Type:  "PUBLIC KEY",
				Bytes: []byte("not der"),
			})),
			expectError: "failed to parse public key",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewEd25519AuthProvider(tc.publicKey, "", OperatorUser, newTokens(t))
			if tc.expectError != "" {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if got := err.Error(); len(got) < len(tc.expectError) || got[:len(tc.expectError)] != tc.expectError {
					t.Errorf("Expected error starting with %q, got %q", tc.expectError, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if p.headerName != OperatorSignatureHeader {
				t.Errorf("Expected default header %s, got %s", OperatorSignatureHeader, p.headerName)
			}
			if len(p.GetChallenge()) != 32 {
				t.Errorf("Expected a 32 byte challenge, got %d", len(p.GetChallenge()))
			}
		})
	}
}

func TestChallengeRefresh(t *testing.T) {
	p, _ := newOperator(t)
	first := string(p.GetChallenge())

	if err := p.RefreshChallenge(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(p.GetChallenge()) == first {
		t.Error("Expected a new challenge")
	}
}

func TestVerifyConsumesChallenge(t *testing.T) {
	p, priv := newOperator(t)
	sig := ed25519.Sign(priv, p.GetChallenge())

	if !p.Verify(sig) {
		t.Fatal("Expected a valid signature to verify")
	}
	if p.Verify(sig) {
		t.Error("Expected a replayed signature to fail")
	}

	_, otherPriv := operatorKey(t)
	if p.Verify(ed25519.Sign(otherPriv, p.GetChallenge())) {
		t.Error("Expected a signature from another key to fail")
	}
}

func TestChallengeHandlers(t *testing.T) {
	p, _ := newOperator(t)
	mux := http.NewServeMux()
	RegisterRoutes(mux, Routes{Operator: p})

	challenge := func(method string) string {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, "/api/auth/challenge", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get(config.HCType); ct != config.CTypeJSON {
			t.Errorf("Expected Content-Type %s, got %s", config.CTypeJSON, ct)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		return body["challenge"]
	}

	got := challenge(http.MethodGet)
	if got != base64.StdEncoding.EncodeToString(p.GetChallenge()) {
		t.Error("Expected GET to return the current challenge")
	}
	if again := challenge(http.MethodGet); again != got {
		t.Error("Expected GET to be stable")
	}
	if refreshed := challenge(http.MethodPost); refreshed == got {
		t.Error("Expected POST to issue a new challenge")
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/auth/challenge", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestOperatorLogin(t *testing.T) {
	p, priv := newOperator(t)
	mux := http.NewServeMux()
	RegisterRoutes(mux, Routes{Operator: p})

	login := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/operator", nil)
		if header != "" {
			req.Header.Set(OperatorSignatureHeader, header)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	testCases := []struct {
		name      string
		header    string
		wantError string
	}{
		{"Missing header", "", config.ErrAuthHeaderRequired},
		{"Not base64", "%%%", config.ErrInvalidSignatureFormat},
		{"Wrong signature", base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize)), config.ErrInvalidSignature},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := login(tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("Expected status 401, got %d", rec.Code)
			}
			if got := errorBody(t, rec); got != tc.wantError {
				t.Errorf("Expected error %q, got %q", tc.wantError, got)
			}
		})
	}

	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, p.GetChallenge()))
	rec := login(sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		AccessToken string     `json:"accessToken"`
		User        model.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	claims, err := p.tokens.Parse(body.AccessToken)
	if err != nil {
		t.Fatalf("Expected a valid access token: %v", err)
	}
	if claims.User() != OperatorUser || !claims.User().IsAdmin() {
		t.Errorf("Expected the operator identity, got %+v", claims.User())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body.AccessToken {
		t.Error("Expected the access token in the session cookie")
	}

	if rec := login(sig); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected a replayed signature to be rejected, got %d", rec.Code)
	}
}
