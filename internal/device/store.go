package device

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists the identity-to-fingerprint binding. BindIfUnbound must be
// atomic: when two requests race to bind the same identity, exactly one
// fingerprint wins and the other caller sees sentinel.ErrAlreadyBound.
type Store interface {
	// FindBinding returns the bound fingerprint, or sentinel.ErrNotFound if
	// the identity is unbound.
	FindBinding(ctx context.Context, userID id.UserID) (string, error)
	// BindIfUnbound records the fingerprint for an unbound identity.
	BindIfUnbound(ctx context.Context, userID id.UserID, fingerprint string) error
	// Clear returns the identity to the unbound state.
	Clear(ctx context.Context, userID id.UserID) error
}
