package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"custodia/internal/audit"
	id "custodia/pkg/domain"
	txcontext "custodia/pkg/platform/tx"
)

// Store persists audit entries in the audit_log table. Inserts join an
// in-context transaction when present so audit entries commit atomically
// with the status change they describe.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one audit entry. This is the sole mutation on the table.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	query := `
		INSERT INTO audit_log (id, action, entity_type, entity_id, actor_id, source_ip, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var actorID *uuid.UUID
	if entry.ActorID != nil {
		aid := uuid.UUID(*entry.ActorID)
		actorID = &aid
	}

	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		actorID,
		entry.SourceIP,
		entry.Detail,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

const selectColumns = `id, action, entity_type, entity_id, actor_id, source_ip, detail, created_at`

// List returns entries newest-first with limit/offset paging.
func (s *Store) List(ctx context.Context, limit, offset int) ([]audit.Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, selectColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByEntity returns entries for one entity, newest-first.
func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`, selectColumns)

	rows, err := s.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries by entity: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByActor returns entries attributed to one actor, newest-first.
func (s *Store) ListByActor(ctx context.Context, actorID string) ([]audit.Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_log
		WHERE actor_id = $1
		ORDER BY created_at DESC
	`, selectColumns)

	rows, err := s.db.QueryContext(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries by actor: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry

	for rows.Next() {
		var (
			entry   audit.Entry
			entryID uuid.UUID
			action  string
			actorID *uuid.UUID
		)

		err := rows.Scan(
			&entryID,
			&action,
			&entry.EntityType,
			&entry.EntityID,
			&actorID,
			&entry.SourceIP,
			&entry.Detail,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.ID = id.AuditID(entryID)
		entry.Action = audit.Action(action)
		if actorID != nil {
			aid := id.UserID(*actorID)
			entry.ActorID = &aid
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}
