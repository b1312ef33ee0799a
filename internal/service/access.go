package service

import (
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/password"
)

// Dashboard surfaces a validated identity can be routed to.
const (
	SurfaceAdmin  = "admin"
	SurfaceEditor = "editor"
	SurfaceReader = "reader"
)

// Privileged actions guarded by CanPerform. All are admin-only.
const (
	ActionUserCreate     = "user.create"
	ActionUserUpdate     = "user.update"
	ActionUserToggle     = "user.toggle"
	ActionUserDelete     = "user.delete"
	ActionUserBulkCreate = "user.bulk_create"
	ActionAuditView      = "audit.view"
)

// GateState is the password-expiry gate's finite state machine. It is
// derived solely from the expiry status, never stored.
type GateState string

const (
	// GateAuthenticated permits normal routing.
	GateAuthenticated GateState = "authenticated"
	// GateWarned permits routing and surfaces a dismissible reminder.
	GateWarned GateState = "warned_authenticated"
	// GateForcedChange suspends routing until the password is changed.
	GateForcedChange GateState = "forced_change"
)

// Surface maps a role to the dashboard it is routed to.
func Surface(role string) string {
	switch role {
	case models.RoleAdmin:
		return SurfaceAdmin
	case models.RoleEditor:
		return SurfaceEditor
	default:
		return SurfaceReader
	}
}

// CanPerform reports whether the role may run the privileged action.
func CanPerform(role, action string) bool {
	switch action {
	case ActionUserCreate, ActionUserUpdate, ActionUserToggle, ActionUserDelete, ActionUserBulkCreate, ActionAuditView:
		return role == models.RoleAdmin
	}
	return false
}

// GateFromExpiry derives the gate state from an expiry classification.
func GateFromExpiry(status password.ExpiryStatus) GateState {
	switch {
	case status.IsExpired:
		return GateForcedChange
	case status.InWarningBand:
		return GateWarned
	default:
		return GateAuthenticated
	}
}

// PasswordState maps a gate state onto the token claim value.
func (g GateState) PasswordState() string {
	switch g {
	case GateForcedChange:
		return PasswordStateExpired
	case GateWarned:
		return PasswordStateWarn
	default:
		return PasswordStateOK
	}
}
