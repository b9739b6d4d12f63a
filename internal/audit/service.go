package audit

import (
	"context"
	"log/slog"

	id "custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// Recorder captures structured audit entries. Append failures are logged and
// swallowed for informational actions but returned for security-relevant
// ones, so a dropped ledger never silently loses a rejection record.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record appends one entry, filling identity, source address and timestamp
// from the request context. Honors an in-context SQL transaction so callers
// can commit the entry atomically with their own writes.
func (r *Recorder) Record(ctx context.Context, action Action, entityType, entityID string, detail string) error {
	entry := Entry{
		ID:         id.NewAuditID(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		SourceIP:   requestcontext.ClientIP(ctx),
		Detail:     detail,
		Timestamp:  requestcontext.Now(ctx),
	}
	if actorID := requestcontext.ActorID(ctx); !actorID.IsNil() {
		entry.ActorID = &actorID
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"action", string(action),
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err.Error(),
		)
		if action.Severity() != SeverityInfo {
			return err
		}
	}
	return nil
}

// List returns entries newest-first with limit/offset paging.
func (r *Recorder) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return r.store.List(ctx, limit, offset)
}

// ListByEntity returns entries for one entity, newest-first.
func (r *Recorder) ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	return r.store.ListByEntity(ctx, entityType, entityID)
}

// ListByActor returns entries attributed to one actor, newest-first.
func (r *Recorder) ListByActor(ctx context.Context, actorID string) ([]Entry, error) {
	return r.store.ListByActor(ctx, actorID)
}
