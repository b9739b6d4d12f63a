package schedule

import (
	"context"
	"time"

	id "custodia/pkg/domain"
)

// Store persists schedule entries. CreateIfAbsent must reject a second
// active entry for the same (center, date, class, subject) with
// sentinel.ErrConflict, backed by a storage-level constraint.
type Store interface {
	CreateIfAbsent(ctx context.Context, entry *Entry) error
	ListByDate(ctx context.Context, date time.Time) ([]Entry, error)
	ListByCenterAndDate(ctx context.Context, centerID id.CenterID, date time.Time) ([]Entry, error)
	NextActiveDate(ctx context.Context, centerID id.CenterID, after time.Time) (*time.Time, error)
}

// CenterStore resolves examination centers for schedule validation.
type CenterStore interface {
	FindByID(ctx context.Context, centerID id.CenterID) (*Center, error)
}
