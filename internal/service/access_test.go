package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/password"
)

func TestSurfaceRouting(t *testing.T) {
	require.Equal(t, SurfaceAdmin, Surface(models.RoleAdmin))
	require.Equal(t, SurfaceEditor, Surface(models.RoleEditor))
	require.Equal(t, SurfaceReader, Surface(models.RoleTeacher))
	require.Equal(t, SurfaceReader, Surface(models.RoleStudent))
	require.Equal(t, SurfaceReader, Surface(models.RoleGuardian))
}

func TestCanPerformRestrictsToAdmin(t *testing.T) {
	actions := []string{
		ActionUserCreate, ActionUserUpdate, ActionUserToggle,
		ActionUserDelete, ActionUserBulkCreate, ActionAuditView,
	}

	for _, action := range actions {
		require.True(t, CanPerform(models.RoleAdmin, action), action)
		require.False(t, CanPerform(models.RoleEditor, action), action)
		require.False(t, CanPerform(models.RoleStudent, action), action)
	}

	require.False(t, CanPerform(models.RoleAdmin, "unknown.action"))
}

func TestGateFromExpiry(t *testing.T) {
	cases := []struct {
		name     string
		status   password.ExpiryStatus
		expected GateState
		claim    string
	}{
		{"healthy", password.ExpiryStatus{DaysRemaining: 60}, GateAuthenticated, PasswordStateOK},
		{"warning band", password.ExpiryStatus{DaysRemaining: 10, InWarningBand: true}, GateWarned, PasswordStateWarn},
		{"expired", password.ExpiryStatus{IsExpired: true}, GateForcedChange, PasswordStateExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := GateFromExpiry(tc.status)
			require.Equal(t, tc.expected, state)
			require.Equal(t, tc.claim, state.PasswordState())
		})
	}
}
