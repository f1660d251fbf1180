package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// UserStore defines the interface for user mapping storage operations.
type UserStore interface {
	// Upsert inserts a mapping row or updates it by display name.
	Upsert(ctx context.Context, user *UserRecord) error
	// GetByDisplayName fetches one mapping row. Returns ErrNotFound if absent.
	GetByDisplayName(ctx context.Context, displayName string) (*UserRecord, error)
	// Count returns the number of stored mapping rows.
	Count(ctx context.Context) (int, error)
}

// UserRepo provides methods for user mapping operations.
// It implements the UserStore interface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Upsert inserts a mapping row or updates email and external id for an
// existing display name.
func (r *UserRepo) Upsert(ctx context.Context, user *UserRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (display_name, email, external_id, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (display_name) DO UPDATE SET
		 email = excluded.email, external_id = excluded.external_id, updated_at = CURRENT_TIMESTAMP`,
		user.DisplayName, user.Email, user.ExternalID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByDisplayName fetches one mapping row. Returns ErrNotFound if absent.
func (r *UserRepo) GetByDisplayName(ctx context.Context, displayName string) (*UserRecord, error) {
	var user UserRecord
	var updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT display_name, email, external_id, updated_at FROM users WHERE display_name = ?",
		displayName,
	).Scan(&user.DisplayName, &user.Email, &user.ExternalID, &updatedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.UpdatedAt, err = parseSQLiteTime(updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Count returns the number of stored mapping rows.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
