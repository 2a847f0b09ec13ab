package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yabood/yabood/internal/model"
	"github.com/yabood/yabood/internal/profile"
)

func strPtr(s string) *string { return &s }

func newClerk(store profile.Store, users map[string]*clerk.User) *ClerkAuthProvider {
	return &ClerkAuthProvider{
		profiles:    store,
		adminDomain: "yabood.com",
		now:         func() time.Time { return testNow },
		getUser: func(_ context.Context, id string) (*clerk.User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return nil, errors.New("user not found")
		},
	}
}

func TestClerkAuthenticate(t *testing.T) {
	c := newClerk(profile.NewMemoryStore(), map[string]*clerk.User{
		"user_1": {
			ID:                    "user_1",
			PrimaryEmailAddressID: strPtr("em_2"),
			EmailAddresses: []*clerk.EmailAddress{
				{ID: "em_1", EmailAddress: "old@example.com"},
				{ID: "em_2", EmailAddress: "Yousif@Yabood.com"},
			},
			FirstName: strPtr("Yousif"),
			LastName:  strPtr("Abood"),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := c.Authenticate(req)
	assert.ErrorIs(t, err, ErrNoCredentials)

	claims := &clerk.SessionClaims{RegisteredClaims: clerk.RegisteredClaims{Subject: "user_1"}}
	req = req.WithContext(clerk.ContextWithSessionClaims(req.Context(), claims))
	u, err := c.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, model.User{
		ID:       "user_1",
		Email:    "Yousif@Yabood.com",
		Name:     "Yousif Abood",
		Provider: "clerk",
		Role:     model.RoleAdmin,
	}, u)

	claims = &clerk.SessionClaims{RegisteredClaims: clerk.RegisteredClaims{Subject: "user_missing"}}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(clerk.ContextWithSessionClaims(req.Context(), claims))
	_, err = c.Authenticate(req)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCredentials)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada", displayName(&clerk.User{FirstName: strPtr("Ada"), LastName: strPtr("")}))
	assert.Equal(t, "ada", displayName(&clerk.User{Username: strPtr("ada")}))
	assert.Equal(t, "", displayName(&clerk.User{}))
	assert.Equal(t, "", primaryEmail(&clerk.User{}))
}

func TestClerkWebhook(t *testing.T) {
	store := profile.NewMemoryStore()
	c := newClerk(store, nil)
	mux := http.NewServeMux()
	RegisterRoutes(mux, Routes{Clerk: c})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/webhook/clerk", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := send(`{"type":"user.created","data":{"id":"user_1","primary_email_address_id":"em_1",` +
		`"email_addresses":[{"id":"em_1","email_address":"reader@example.com"}],"first_name":"Reader"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	p, err := store.Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", p.Email)
	assert.Equal(t, "Reader", p.Name)
	assert.Equal(t, model.RoleUser, p.Role)
	assert.True(t, p.CreatedAt.Equal(testNow))

	c.now = func() time.Time { return testNow.Add(time.Hour) }
	rec = send(`{"type":"user.updated","data":{"id":"user_1","first_name":"Renamed"}}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	p, err = store.Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
	assert.True(t, p.CreatedAt.Equal(testNow))
	assert.True(t, p.UpdatedAt.Equal(testNow.Add(time.Hour)))

	rec = send(`{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err = store.Get(context.Background(), "user_1")
	assert.ErrorIs(t, err, profile.ErrNotFound)

	assert.Equal(t, http.StatusBadRequest, send(`{"type":"session.created","data":{"id":"sess_1"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(`{"type":"user.created","data":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(`not json`).Code)
}
