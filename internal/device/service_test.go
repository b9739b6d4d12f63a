package device_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"custodia/internal/audit"
	auditMemory "custodia/internal/audit/store/memory"
	"custodia/internal/device"
	deviceMemory "custodia/internal/device/store/memory"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

type GuardSuite struct {
	suite.Suite
	auditStore *auditMemory.InMemoryStore
	guard      *device.Guard
	userID     id.UserID
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditStore = auditMemory.NewInMemoryStore()
	s.guard = device.NewGuard(deviceMemory.NewInMemoryStore(), audit.NewRecorder(s.auditStore, logger), logger, false)
	s.userID = id.NewUserID()
}

func (s *GuardSuite) userActions() []audit.Action {
	entries, err := s.auditStore.ListByEntity(context.Background(), "user", s.userID.String())
	s.Require().NoError(err)
	actions := make([]audit.Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *GuardSuite) TestVerify() {
	ctx := context.Background()

	s.Run("first use binds and audits", func() {
		s.Require().NoError(s.guard.Verify(ctx, s.userID, "fp-1"))
		s.Contains(s.userActions(), audit.ActionDeviceBound)
	})

	s.Run("same fingerprint passes", func() {
		s.NoError(s.guard.Verify(ctx, s.userID, "fp-1"))
	})

	s.Run("different fingerprint is forbidden and audited", func() {
		err := s.guard.Verify(ctx, s.userID, "fp-2")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Contains(s.userActions(), audit.ActionDeviceMismatch)
	})

	s.Run("original fingerprint still passes after a mismatch", func() {
		s.NoError(s.guard.Verify(ctx, s.userID, "fp-1"))
	})

	s.Run("empty fingerprint is forbidden", func() {
		err := s.guard.Verify(ctx, id.NewUserID(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *GuardSuite) TestReset() {
	ctx := context.Background()
	s.Require().NoError(s.guard.Verify(ctx, s.userID, "fp-1"))

	s.Run("reset unbinds and audits", func() {
		s.Require().NoError(s.guard.Reset(ctx, s.userID))
		s.Contains(s.userActions(), audit.ActionDeviceReset)
	})

	s.Run("a new fingerprint binds after the reset", func() {
		s.NoError(s.guard.Verify(ctx, s.userID, "fp-2"))
	})

	s.Run("resetting an unbound user is a no-op", func() {
		s.NoError(s.guard.Reset(ctx, id.NewUserID()))
	})
}

func (s *GuardSuite) TestBypass() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bypassed := device.NewGuard(deviceMemory.NewInMemoryStore(), audit.NewRecorder(s.auditStore, logger), logger, true)

	// Any fingerprint passes, but the bypass itself lands in the audit trail.
	s.Require().NoError(bypassed.Verify(context.Background(), s.userID, ""))
	s.Contains(s.userActions(), audit.ActionDeviceBypassed)
}

func TestComputeFingerprint(t *testing.T) {
	fp := device.NewFingerprinter()
	const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	t.Run("stable for identical inputs", func(t *testing.T) {
		a := fp.ComputeFingerprint("device-1", chromeUA)
		b := fp.ComputeFingerprint("device-1", chromeUA)
		if a != b || a == "" {
			t.Fatalf("expected stable non-empty fingerprint, got %q and %q", a, b)
		}
	})

	t.Run("differs per device", func(t *testing.T) {
		if fp.ComputeFingerprint("device-1", chromeUA) == fp.ComputeFingerprint("device-2", chromeUA) {
			t.Fatal("expected different fingerprints for different devices")
		}
	})

	t.Run("browser patch releases do not change it", func(t *testing.T) {
		const patched = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.1 Safari/537.36"
		if fp.ComputeFingerprint("device-1", chromeUA) != fp.ComputeFingerprint("device-1", patched) {
			t.Fatal("expected major-version fingerprinting to ignore patch releases")
		}
	})

	t.Run("empty inputs produce no fingerprint", func(t *testing.T) {
		if fp.ComputeFingerprint("", "") != "" {
			t.Fatal("expected empty fingerprint for empty inputs")
		}
	})
}
