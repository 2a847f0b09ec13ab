package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/profile"
)

func newBridge(t *testing.T) (*Bridge, *JWTProvider, profile.Store) {
	t.Helper()
	tokens := newTokens(t)
	store := profile.NewMemoryStore()
	b := NewBridge(tokens, store)
	b.now = func() time.Time { return testNow }
	return b, tokens, store
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestBridgeOptions(t *testing.T) {
	b, _, _ := newBridge(t)
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/auth/verify", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestBridgeRejects(t *testing.T) {
	b, _, _ := newBridge(t)

	testCases := []struct {
		name   string
		body   string
		status int
		error  string
	}{
		{"Malformed body", `{`, http.StatusBadRequest, "Invalid JSON body"},
		{"No token", `{"action":"verify"}`, http.StatusUnauthorized, config.ErrNoToken},
		{"Unknown action", `{"token":"x","action":"delete"}`, http.StatusBadRequest, config.ErrInvalidAction},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(b, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.error, decode(t, rec)["error"])
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestBridgeVerify(t *testing.T) {
	b, tokens, store := newBridge(t)
	token := mint(t, tokens, testUser)

	t.Run("Invalid token", func(t *testing.T) {
		rec := post(b, `{"token":"bogus","action":"verify"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, false, out["valid"])
		assert.Equal(t, config.ErrInvalidToken, out["error"])
	})

	t.Run("Falls back to token claims", func(t *testing.T) {
		rec := post(b, `{"token":"`+token+`","action":"verify"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode(t, rec)
		assert.Equal(t, true, out["valid"])
		user := out["user"].(map[string]any)
		assert.Equal(t, "42", user["userId"])
		assert.Equal(t, "reader@example.com", user["email"])
		assert.Contains(t, user, "exp")
	})

	t.Run("Returns the stored profile", func(t *testing.T) {
		require.NoError(t, store.Put(context.Background(), profile.Profile{
			ID:     "42",
			UserID: "42",
			Name:   "Stored Name",
			Extra:  map[string]any{"bio": "Hi"},
		}))
		rec := post(b, `{"token":"`+token+`","action":"verify"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		user := decode(t, rec)["user"].(map[string]any)
		assert.Equal(t, "Stored Name", user["name"])
		assert.Equal(t, "Hi", user["bio"])
		assert.NotContains(t, user, "exp")
	})
}

func TestBridgeSaveProfile(t *testing.T) {
	b, tokens, store := newBridge(t)
	token := mint(t, tokens, testUser)

	rec := post(b, `{"token":"`+token+`","action":"saveProfile","profile":{"bio":"Writes Go","role":"admin","name":"Display"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	saved := out["profile"].(map[string]any)
	assert.Equal(t, "42", saved["id"])
	assert.Equal(t, "user", saved["role"])
	assert.Equal(t, "Display", saved["name"])
	assert.Equal(t, "Writes Go", saved["bio"])

	p, err := store.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", p.Email)
	assert.True(t, p.CreatedAt.Equal(testNow))

	b.now = func() time.Time { return testNow.Add(time.Hour) }
	rec = post(b, `{"token":"`+token+`","action":"saveProfile","profile":{"bio":"Still Go"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	p, err = store.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, p.CreatedAt.Equal(testNow), "createdAt must survive updates")
	assert.True(t, p.UpdatedAt.Equal(testNow.Add(time.Hour)))
	assert.Equal(t, "Still Go", p.Extra["bio"])

	rec = post(b, `{"token":"bogus","action":"saveProfile","profile":{}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBridgeSaveWithoutStore(t *testing.T) {
	b := NewBridge(newTokens(t), nil)
	rec := post(b, `{"token":"`+mint(t, newTokens(t), testUser)+`","action":"saveProfile"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, config.ErrSaveProfile, decode(t, rec)["error"])
}
