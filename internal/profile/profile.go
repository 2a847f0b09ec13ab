// Package profile stores user profiles keyed by user id. Profiles are written
// by the token bridge and listed by the admin API.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/db"
	"github.com/yabood/yabood/internal/model"
)

var profileLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	profileLogger = l
}

var ErrNotFound = errors.New("profile not found")

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Profile is a user record. Extra holds any additional attributes the client
// saved; they are flattened into the JSON object next to the fixed fields.
type Profile struct {
	ID        string
	UserID    model.UserID
	Email     string
	Name      string
	Provider  string
	Role      model.Role
	CreatedAt time.Time
	UpdatedAt time.Time
	Extra     map[string]any
}

type profileFields struct {
	ID        string       `json:"id"`
	UserID    model.UserID `json:"userId"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Provider  string       `json:"provider"`
	Role      model.Role   `json:"role,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

var fieldKeys = []string{"id", "userId", "email", "name", "provider", "role", "createdAt", "updatedAt"}

func (p Profile) MarshalJSON() ([]byte, error) {
	fixed, err := json.Marshal(profileFields{
		ID:        p.ID,
		UserID:    p.UserID,
		Email:     p.Email,
		Name:      p.Name,
		Provider:  p.Provider,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
	if err != nil || len(p.Extra) == 0 {
		return fixed, err
	}

	out := make(map[string]json.RawMessage, len(p.Extra)+len(fieldKeys))
	for k, v := range p.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("profile attribute %q: %w", k, err)
		}
		out[k] = raw
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(fixed, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	var fields profileFields
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	var extra map[string]any
	if err := json.Unmarshal(b, &extra); err != nil {
		return err
	}
	for _, k := range fieldKeys {
		delete(extra, k)
	}
	if len(extra) == 0 {
		extra = nil
	}

	*p = Profile{
		ID:        fields.ID,
		UserID:    fields.UserID,
		Email:     fields.Email,
		Name:      fields.Name,
		Provider:  fields.Provider,
		Role:      fields.Role,
		CreatedAt: fields.CreatedAt,
		UpdatedAt: fields.UpdatedAt,
		Extra:     extra,
	}
	return nil
}

// Merge applies client-supplied attributes. Identity fields stay bound to
// the token; name may be overridden and every other key is kept in Extra.
func (p *Profile) Merge(attrs map[string]any) {
	for k, v := range attrs {
		switch k {
		case "id", "userId", "email", "provider", "role", "createdAt", "updatedAt":
			continue
		case "name":
			if s, ok := v.(string); ok && s != "" {
				p.Name = s
			}
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
		}
	}
}

type Store interface {
	Get(ctx context.Context, id string) (Profile, error)
	Put(ctx context.Context, p Profile) error
	List(ctx context.Context) ([]Profile, error)
	// Delete removes a profile; a missing id is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.ProfilesConfig) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		conn := db.NewSQLite(cfg.SQLitePath)
		if err := conn.InitDB(); err != nil {
			return nil, err
		}
		return NewSQLiteStore(conn), nil
	case BackendRedis:
		s, err := DialRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown profile backend %q", cfg.Backend)
}

// sortProfiles orders by creation time, then id.
func sortProfiles(profiles []Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if !profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
		}
		return profiles[i].ID < profiles[j].ID
	})
}
