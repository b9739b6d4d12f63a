package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	platformpg "custodia/internal/platform/postgres"
	"custodia/internal/schedule"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// Store persists schedule entries. The partial unique index
// schedules_center_date_class_subject_key backs duplicate rejection.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateIfAbsent(ctx context.Context, entry *schedule.Entry) error {
	query := `
		INSERT INTO schedules (id, center_id, exam_date, class, subject, category, start_time, end_time, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.CenterID),
		entry.Date,
		entry.Class,
		entry.Subject,
		string(entry.Category),
		entry.Start,
		entry.End,
		entry.Active,
		entry.Created,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

const selectColumns = `id, center_id, exam_date, class, subject, category, start_time, end_time, active, created_at`

func (s *Store) ListByDate(ctx context.Context, date time.Time) ([]schedule.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE exam_date = $1 ORDER BY created_at`, selectColumns)

	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query schedules by date: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *Store) ListByCenterAndDate(ctx context.Context, centerID id.CenterID, date time.Time) ([]schedule.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE center_id = $1 AND exam_date = $2 ORDER BY created_at`, selectColumns)

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(centerID), date)
	if err != nil {
		return nil, fmt.Errorf("query schedules by center: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *Store) NextActiveDate(ctx context.Context, centerID id.CenterID, after time.Time) (*time.Time, error) {
	query := `
		SELECT MIN(exam_date) FROM schedules
		WHERE center_id = $1 AND active AND exam_date > $2
	`
	var next sql.NullTime
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(centerID), after).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query next active date: %w", err)
	}
	if !next.Valid {
		return nil, sentinel.ErrNotFound
	}
	date := next.Time.UTC()
	return &date, nil
}

func scanEntries(rows *sql.Rows) ([]schedule.Entry, error) {
	var entries []schedule.Entry

	for rows.Next() {
		var (
			entry    schedule.Entry
			entryID  uuid.UUID
			centerID uuid.UUID
			category string
		)

		err := rows.Scan(
			&entryID,
			&centerID,
			&entry.Date,
			&entry.Class,
			&entry.Subject,
			&category,
			&entry.Start,
			&entry.End,
			&entry.Active,
			&entry.Created,
		)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}

		entry.ID = id.ScheduleID(entryID)
		entry.CenterID = id.CenterID(centerID)
		entry.Category = timewindow.Category(category)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	return entries, nil
}

// CenterStore resolves centers from the centers table.
type CenterStore struct {
	db *sql.DB
}

func NewCenterStore(db *sql.DB) *CenterStore {
	return &CenterStore{db: db}
}

func (s *CenterStore) FindByID(ctx context.Context, centerID id.CenterID) (*schedule.Center, error) {
	query := `SELECT id, name, active FROM centers WHERE id = $1`

	var (
		center schedule.Center
		cid    uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(centerID)).Scan(&cid, &center.Name, &center.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query center: %w", err)
	}
	center.ID = id.CenterID(cid)
	return &center, nil
}
