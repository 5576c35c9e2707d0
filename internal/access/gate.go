// ABOUTME: Authorization gate deciding whether an inbound update may be handled
// ABOUTME: Super-admin bypasses the whitelist; everyone else must be a member

package access

import (
	"context"
	"log/slog"

	"github.com/arbatlabs/idgate/internal/store"
)

// DenialRecorder counts denied updates. May be nil.
type DenialRecorder interface {
	RecordDenial()
}

// Gate makes the single authorization decision evaluated once per
// inbound update, before any handler logic runs.
type Gate struct {
	superAdminID int64
	whitelist    store.WhitelistStore
	recorder     DenialRecorder
	logger       *slog.Logger
}

// New creates a Gate. The super-admin ID is always allowed, whether or
// not it appears in the whitelist; the whitelist can never revoke it.
// recorder may be nil.
func New(superAdminID int64, whitelist store.WhitelistStore, recorder DenialRecorder) *Gate {
	return &Gate{
		superAdminID: superAdminID,
		whitelist:    whitelist,
		recorder:     recorder,
		logger:       slog.Default().With("component", "access"),
	}
}

// SuperAdminID returns the configured super-admin identity.
func (g *Gate) SuperAdminID() int64 {
	return g.superAdminID
}

// Check reports whether the acting user may proceed. A denial is logged
// and counted here; the caller drops the update without replying.
// A whitelist storage failure denies (fail closed) and is logged at
// error level.
func (g *Gate) Check(ctx context.Context, userID int64) bool {
	if userID == g.superAdminID {
		return true
	}

	ok, err := g.whitelist.IsWhitelisted(ctx, userID)
	if err != nil {
		g.logger.Error("whitelist check failed, denying", "user_id", userID, "error", err)
		g.deny()
		return false
	}
	if !ok {
		g.logger.Warn("access denied", "user_id", userID)
		g.deny()
		return false
	}

	return true
}

func (g *Gate) deny() {
	if g.recorder != nil {
		g.recorder.RecordDenial()
	}
}
