package audit

import "context"

// Store persists audit entries. Append is the only mutation; no update or
// delete exists, and none should be added.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, limit, offset int) ([]Entry, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
	ListByActor(ctx context.Context, actorID string) ([]Entry, error)
}
