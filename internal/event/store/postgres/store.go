package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"custodia/internal/event"
	platformpg "custodia/internal/platform/postgres"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// Store persists task events in the task_events table. The unique index on
// (task_id, event_type) is the anti-replay guarantee: of two concurrent
// submissions, exactly one insert succeeds.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateIfAbsent(ctx context.Context, ev *event.TaskEvent) error {
	query := `
		INSERT INTO task_events (id, task_id, event_type, image_ref, image_hash, latitude, longitude, server_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(ev.ID),
		uuid.UUID(ev.TaskID),
		string(ev.Type),
		ev.ImageRef,
		ev.ImageHash,
		ev.Geo.Latitude,
		ev.Geo.Longitude,
		ev.ServerTime,
		ev.CreatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert task event: %w", err)
	}
	return nil
}

const selectColumns = `id, task_id, event_type, image_ref, image_hash, latitude, longitude, server_time, created_at`

func (s *Store) FindByTaskAndType(ctx context.Context, taskID id.TaskID, eventType event.TaskEventType) (*event.TaskEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM task_events WHERE task_id = $1 AND event_type = $2`, selectColumns)
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(taskID), string(eventType))

	ev, err := scanTaskEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query task event: %w", err)
	}
	return ev, nil
}

func (s *Store) ListByTask(ctx context.Context, taskID id.TaskID) ([]event.TaskEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM task_events WHERE task_id = $1 ORDER BY created_at ASC`, selectColumns)
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(taskID))
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer rows.Close()

	var events []event.TaskEvent
	for rows.Next() {
		ev, err := scanTaskEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTaskEvent(row scannable) (*event.TaskEvent, error) {
	var (
		ev        event.TaskEvent
		eventID   uuid.UUID
		taskID    uuid.UUID
		eventType string
	)
	err := row.Scan(
		&eventID,
		&taskID,
		&eventType,
		&ev.ImageRef,
		&ev.ImageHash,
		&ev.Geo.Latitude,
		&ev.Geo.Longitude,
		&ev.ServerTime,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.ID = id.EventID(eventID)
	ev.TaskID = id.TaskID(taskID)
	ev.Type = event.TaskEventType(eventType)
	return &ev, nil
}

// TrackerStore persists exam-tracker events. The unique index on
// (user_id, school_id, event_type, shift, event_date) enforces the per-day
// dedupe rule.
type TrackerStore struct {
	db *sql.DB
}

func NewTrackerStore(db *sql.DB) *TrackerStore {
	return &TrackerStore{db: db}
}

func (s *TrackerStore) CreateIfAbsent(ctx context.Context, ev *event.TrackerEvent) error {
	query := `
		INSERT INTO tracker_events (id, user_id, school_id, event_type, shift, event_date,
		                            image_ref, image_hash, latitude, longitude, server_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(ev.ID),
		uuid.UUID(ev.UserID),
		uuid.UUID(ev.SchoolID),
		string(ev.Kind),
		int(ev.Shift),
		ev.Date,
		ev.ImageRef,
		ev.ImageHash,
		ev.Geo.Latitude,
		ev.Geo.Longitude,
		ev.ServerTime,
		ev.CreatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert tracker event: %w", err)
	}
	return nil
}

func (s *TrackerStore) ListByUserAndDate(ctx context.Context, userID id.UserID, date time.Time) ([]event.TrackerEvent, error) {
	query := `
		SELECT id, user_id, school_id, event_type, shift, event_date,
		       image_ref, image_hash, latitude, longitude, server_time, created_at
		FROM tracker_events
		WHERE user_id = $1 AND event_date = $2
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), date)
	if err != nil {
		return nil, fmt.Errorf("list tracker events: %w", err)
	}
	defer rows.Close()

	var events []event.TrackerEvent
	for rows.Next() {
		var (
			ev       event.TrackerEvent
			eventID  uuid.UUID
			actorID  uuid.UUID
			schoolID uuid.UUID
			kind     string
			shift    int
		)
		err := rows.Scan(
			&eventID,
			&actorID,
			&schoolID,
			&kind,
			&shift,
			&ev.Date,
			&ev.ImageRef,
			&ev.ImageHash,
			&ev.Geo.Latitude,
			&ev.Geo.Longitude,
			&ev.ServerTime,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tracker event: %w", err)
		}
		ev.ID = id.EventID(eventID)
		ev.UserID = id.UserID(actorID)
		ev.SchoolID = id.CenterID(schoolID)
		ev.Kind = event.TrackerKind(kind)
		ev.Shift = event.Shift(shift)
		events = append(events, ev)
	}
	return events, rows.Err()
}
