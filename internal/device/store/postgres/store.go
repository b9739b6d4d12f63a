package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// Store persists device bindings in the device_bindings table. The primary
// key on user_id makes BindIfUnbound atomic: a concurrent bind loses with a
// unique violation.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindBinding(ctx context.Context, userID id.UserID) (string, error) {
	var fingerprint string
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM device_bindings WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("query device binding: %w", err)
	}
	return fingerprint, nil
}

func (s *Store) BindIfUnbound(ctx context.Context, userID id.UserID, fingerprint string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO device_bindings (user_id, fingerprint, bound_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.UUID(userID), fingerprint)
	if err != nil {
		return fmt.Errorf("bind device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind device: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyBound
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM device_bindings WHERE user_id = $1`,
		uuid.UUID(userID),
	)
	if err != nil {
		return fmt.Errorf("clear device binding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear device binding: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
