package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	platformpg "custodia/internal/platform/postgres"
	"custodia/internal/task"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	txcontext "custodia/pkg/platform/tx"
)

// Store persists tasks. Writes join an in-context transaction so status
// changes commit atomically with their audit entries.
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

func (s *Store) CreateIfCodeAvailable(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO tasks (id, code, source, destination, assignee_id, scheduled_start, scheduled_end,
		                   expected_travel_minutes, double_shift, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID),
		t.Code,
		t.Source,
		t.Destination,
		uuid.UUID(t.AssigneeID),
		t.ScheduledStart,
		t.ScheduledEnd,
		int(t.ExpectedTravel/time.Minute),
		t.DoubleShift,
		string(t.Status),
		t.CreatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

const selectColumns = `id, code, source, destination, assignee_id, scheduled_start, scheduled_end,
       expected_travel_minutes, double_shift, status, created_at`

func (s *Store) FindByID(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, selectColumns)
	return s.queryOne(ctx, query, uuid.UUID(taskID))
}

func (s *Store) FindByCode(ctx context.Context, code string) (*task.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE UPPER(code) = UPPER($1)`, selectColumns)
	return s.queryOne(ctx, query, code)
}

func (s *Store) queryOne(ctx context.Context, query string, arg any) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

func (s *Store) ListByAssignee(ctx context.Context, assigneeID id.UserID) ([]task.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE assignee_id = $1 ORDER BY scheduled_start DESC`, selectColumns)

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(assigneeID))
	if err != nil {
		return nil, fmt.Errorf("query tasks by assignee: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) UpdateStatus(ctx context.Context, taskID id.TaskID, status task.Status) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE tasks SET status = $2 WHERE id = $1`,
		uuid.UUID(taskID), string(status),
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) Reschedule(ctx context.Context, taskID id.TaskID, t *task.Task) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE tasks SET scheduled_start = $2, scheduled_end = $3, status = $4 WHERE id = $1
	`, uuid.UUID(taskID), t.ScheduledStart, t.ScheduledEnd, string(t.Status))
	if err != nil {
		return fmt.Errorf("reschedule task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reschedule task: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*task.Task, error) {
	var (
		t             task.Task
		taskID        uuid.UUID
		assigneeID    uuid.UUID
		travelMinutes int
		status        string
	)
	err := row.Scan(
		&taskID,
		&t.Code,
		&t.Source,
		&t.Destination,
		&assigneeID,
		&t.ScheduledStart,
		&t.ScheduledEnd,
		&travelMinutes,
		&t.DoubleShift,
		&status,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ID = id.TaskID(taskID)
	t.AssigneeID = id.UserID(assigneeID)
	t.ExpectedTravel = time.Duration(travelMinutes) * time.Minute
	t.Status = task.Status(status)
	return &t, nil
}

// Directory resolves assignees from the users table owned by the auth
// collaborator.
type Directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) FindAssignee(ctx context.Context, userID id.UserID) (*task.Assignee, error) {
	query := `SELECT id, role, active FROM users WHERE id = $1`

	var (
		a    task.Assignee
		uid  uuid.UUID
		role string
	)
	err := d.db.QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(&uid, &role, &a.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query assignee: %w", err)
	}
	a.ID = id.UserID(uid)
	a.Role = id.Role(role)
	return &a, nil
}
