package device

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/audit"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Guard is the device binding state machine: Unbound -> Bound(fingerprint).
// Binding happens on first use; a mismatch is Forbidden; only an explicit
// administrative reset returns an identity to Unbound.
type Guard struct {
	store   Store
	auditor *audit.Recorder
	logger  *slog.Logger
	bypass  bool
}

// NewGuard constructs the guard. bypass disables enforcement entirely and
// must only ever come from the explicit environment flag.
func NewGuard(store Store, auditor *audit.Recorder, logger *slog.Logger, bypass bool) *Guard {
	if bypass {
		logger.Warn("device binding guard is BYPASSED; all device checks will pass")
	}
	return &Guard{store: store, auditor: auditor, logger: logger, bypass: bypass}
}

// Verify enforces the binding rule for a security-sensitive action.
// Unbound identities bind to the presented fingerprint; bound identities
// must present the same fingerprint or get Forbidden. Both the bind and the
// mismatch are audited.
func (g *Guard) Verify(ctx context.Context, userID id.UserID, fingerprint string) error {
	if g.bypass {
		g.logger.WarnContext(ctx, "device binding check bypassed", "user_id", userID.String())
		return g.auditor.Record(ctx, audit.ActionDeviceBypassed, "user", userID.String(), "")
	}

	if fingerprint == "" {
		return dErrors.New(dErrors.CodeForbidden, "device fingerprint is required")
	}

	bound, err := g.store.FindBinding(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return g.bind(ctx, userID, fingerprint)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load device binding")
	}

	if bound != fingerprint {
		if err := g.auditor.Record(ctx, audit.ActionDeviceMismatch, "user", userID.String(), "presented fingerprint differs from bound device"); err != nil {
			return err
		}
		return dErrors.New(dErrors.CodeForbidden, "request originated from an unrecognized device")
	}

	return nil
}

func (g *Guard) bind(ctx context.Context, userID id.UserID, fingerprint string) error {
	if err := g.store.BindIfUnbound(ctx, userID, fingerprint); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyBound) {
			// Lost a first-use race. Re-verify against whoever won.
			bound, findErr := g.store.FindBinding(ctx, userID)
			if findErr == nil && bound == fingerprint {
				return nil
			}
			if recErr := g.auditor.Record(ctx, audit.ActionDeviceMismatch, "user", userID.String(), "presented fingerprint differs from bound device"); recErr != nil {
				return recErr
			}
			return dErrors.New(dErrors.CodeForbidden, "request originated from an unrecognized device")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind device")
	}
	return g.auditor.Record(ctx, audit.ActionDeviceBound, "user", userID.String(), "")
}

// Reset returns an identity to Unbound. Administrative action only; the
// guard itself never unbinds.
func (g *Guard) Reset(ctx context.Context, userID id.UserID) error {
	if err := g.store.Clear(ctx, userID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset device binding")
	}
	return g.auditor.Record(ctx, audit.ActionDeviceReset, "user", userID.String(), "")
}
