package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Role values carried by profile records. Admins may publish and delete;
// writers may only save drafts.
const (
	RoleAdmin  = "admin"
	RoleWriter = "writer"
)

// ProfileRepository reads the role attribute associated with an identity.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetRole returns the role for the given identity id. Identities without a
// profile record get the most restricted authoring role.
func (r *ProfileRepository) GetRole(ctx context.Context, userID string) (string, error) {
	var profile Profile
	err := r.db.GetContext(ctx, &profile, `SELECT id, role FROM profiles WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return RoleWriter, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get profile role: %w", err)
	}
	return profile.Role, nil
}

// UpsertProfile records or updates the role for an identity. Used when an
// identity first signs in.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, userID, role string) error {
	query := `INSERT INTO profiles (id, role) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET role = excluded.role`
	if r.db.DriverName() == "mysql" {
		query = `INSERT INTO profiles (id, role) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE role = VALUES(role)`
	}
	if _, err := r.db.ExecContext(ctx, query, userID, role); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
