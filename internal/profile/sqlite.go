package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/yabood/yabood/internal/db"
	"github.com/yabood/yabood/internal/model"
)

type profileRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Provider  string    `db:"provider"`
	Role      string    `db:"role"`
	Extra     string    `db:"extra"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r profileRow) profile() (Profile, error) {
	p := Profile{
		ID:        r.ID,
		UserID:    model.UserID(r.UserID),
		Email:     r.Email,
		Name:      r.Name,
		Provider:  r.Provider,
		Role:      model.Role(r.Role),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.Extra != "" && r.Extra != "{}" {
		if err := json.Unmarshal([]byte(r.Extra), &p.Extra); err != nil {
			return Profile{}, errors.Wrapf(err, "profile %s has malformed attributes", r.ID)
		}
	}
	return p, nil
}

// SQLiteStore keeps profiles in the profiles table.
type SQLiteStore struct {
	db db.DB
}

func NewSQLiteStore(conn db.DB) *SQLiteStore {
	return &SQLiteStore{db: conn}
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Profile, error) {
	var row profileRow
	err := s.db.Get().GetContext(ctx, &row, `SELECT * FROM profiles WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, errors.Wrapf(err, "failed to read profile %s", id)
	}
	return row.profile()
}

func (s *SQLiteStore) Put(ctx context.Context, p Profile) error {
	extra := "{}"
	if len(p.Extra) > 0 {
		b, err := json.Marshal(p.Extra)
		if err != nil {
			return errors.Wrap(err, "failed to encode profile attributes")
		}
		extra = string(b)
	}

	row := profileRow{
		ID:        p.ID,
		UserID:    string(p.UserID),
		Email:     p.Email,
		Name:      p.Name,
		Provider:  p.Provider,
		Role:      string(p.Role),
		Extra:     extra,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	if row.Role == "" {
		row.Role = string(model.RoleUser)
	}

	_, err := s.db.Get().NamedExecContext(ctx, `
INSERT INTO profiles (id, user_id, email, name, provider, role, extra, created_at, updated_at)
VALUES (:id, :user_id, :email, :name, :provider, :role, :extra, :created_at, :updated_at)
ON CONFLICT(id) DO UPDATE SET
    user_id = excluded.user_id,
    email = excluded.email,
    name = excluded.name,
    provider = excluded.provider,
    role = excluded.role,
    extra = excluded.extra,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`, row)
	if err != nil {
		return errors.Wrapf(err, "failed to save profile %s", p.ID)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Profile, error) {
	var rows []profileRow
	if err := s.db.Get().SelectContext(ctx, &rows, `SELECT * FROM profiles ORDER BY created_at, id`); err != nil {
		return nil, errors.Wrap(err, "failed to list profiles")
	}

	profiles := make([]Profile, 0, len(rows))
	for _, r := range rows {
		p, err := r.profile()
		if err != nil {
			profileLogger.Warn().Err(err).Msg("Skipping profile")
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Get().ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return errors.Wrapf(err, "failed to delete profile %s", id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
