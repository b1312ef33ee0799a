package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/password"
)

const validPassword = "Str0ng!pass"

func setupAuthService(t *testing.T) (AuthService, *memoryUserRepo, *recordingAudit, TokenService) {
	t.Helper()

	repo := newMemoryUserRepo()
	audit := &recordingAudit{}
	tokens := setupTokenService(t)
	svc := NewAuthService(repo, tokens, audit, password.DefaultRotationDays, password.DefaultWarnDays, testLogger())
	return svc, repo, audit, tokens
}

func seedStaff(t *testing.T, repo *memoryUserRepo, role string, lastChange *time.Time) models.User {
	t.Helper()

	hash, err := password.Hash(validPassword)
	require.NoError(t, err)

	return repo.add(models.User{
		Email:                "staff@warta.sch.id",
		DisplayName:          "Dina Editor",
		Role:                 role,
		Active:               true,
		PasswordHash:         &hash,
		LastPasswordChangeAt: lastChange,
	})
}

func recentChange() *time.Time {
	at := time.Now().AddDate(0, 0, -10)
	return &at
}

func TestLoginSuccessRecordsAudit(t *testing.T) {
	svc, repo, audit, _ := setupAuthService(t)
	seedStaff(t, repo, models.RoleEditor, recentChange())

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@warta.sch.id", Password: validPassword}, dto.RequestMeta{IPAddress: "203.0.113.9"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.False(t, result.PasswordExpired)
	require.Equal(t, 80, result.DaysRemaining)

	require.Equal(t, 1, audit.count())
	event := audit.last()
	require.Equal(t, models.AuditLoginSuccess, event.Type)
	require.True(t, event.Success)
	require.Equal(t, "203.0.113.9", event.Meta.IPAddress)
	require.Equal(t, "staff@warta.sch.id", event.Actor.Email)
}

func TestLoginFailureReasons(t *testing.T) {
	cases := []struct {
		name     string
		seed     func(t *testing.T, repo *memoryUserRepo)
		email    string
		password string
		expected error
		reason   string
	}{
		{
			name:     "missing credentials",
			seed:     func(t *testing.T, repo *memoryUserRepo) {},
			email:    "",
			password: "",
			expected: ErrMissingCredentials,
			reason:   models.ReasonMissingCredentials,
		},
		{
			name:     "unknown email",
			seed:     func(t *testing.T, repo *memoryUserRepo) {},
			email:    "ghost@warta.sch.id",
			password: validPassword,
			expected: ErrInvalidCredentials,
			reason:   models.ReasonInvalidCredentials,
		},
		{
			name: "wrong password",
			seed: func(t *testing.T, repo *memoryUserRepo) {
				seedStaff(t, repo, models.RoleEditor, recentChange())
			},
			email:    "staff@warta.sch.id",
			password: "Wrong1!pass",
			expected: ErrInvalidCredentials,
			reason:   models.ReasonInvalidCredentials,
		},
		{
			name: "inactive account",
			seed: func(t *testing.T, repo *memoryUserRepo) {
				user := seedStaff(t, repo, models.RoleEditor, recentChange())
				_, err := repo.Update(context.Background(), user.ID, map[string]interface{}{"active": false})
				require.NoError(t, err)
			},
			email:    "staff@warta.sch.id",
			password: validPassword,
			expected: ErrInactiveAccount,
			reason:   models.ReasonInactiveAccount,
		},
		{
			name: "reader role rejected from credential surface",
			seed: func(t *testing.T, repo *memoryUserRepo) {
				seedStaff(t, repo, models.RoleStudent, recentChange())
			},
			email:    "staff@warta.sch.id",
			password: validPassword,
			expected: ErrUnauthorizedRole,
			reason:   models.ReasonUnauthorizedRole,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, audit, _ := setupAuthService(t)
			tc.seed(t, repo)

			_, err := svc.Login(context.Background(), dto.LoginRequest{Email: tc.email, Password: tc.password}, dto.RequestMeta{})
			require.ErrorIs(t, err, tc.expected)

			require.Equal(t, 1, audit.count(), "every attempt records exactly one event")
			event := audit.last()
			require.Equal(t, models.AuditLoginFailed, event.Type)
			require.False(t, event.Success)
			require.Equal(t, tc.reason, event.Reason)
		})
	}
}

func TestLoginRepositoryFaultAuditsSystemError(t *testing.T) {
	svc, repo, audit, _ := setupAuthService(t)
	repo.failureOn = "get"

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@warta.sch.id", Password: validPassword}, dto.RequestMeta{})
	require.ErrorIs(t, err, errDatabaseDown)

	event := audit.last()
	require.Equal(t, models.AuditLoginError, event.Type)
	require.Equal(t, models.ReasonSystemError, event.Reason)
}

func TestLoginExpiredPasswordSetsHardGate(t *testing.T) {
	svc, repo, _, tokens := setupAuthService(t)
	old := time.Now().AddDate(0, 0, -120)
	seedStaff(t, repo, models.RoleAdmin, &old)

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@warta.sch.id", Password: validPassword}, dto.RequestMeta{})
	require.NoError(t, err)
	require.True(t, result.PasswordExpired)
	require.Equal(t, 0, result.DaysRemaining)

	claims, err := tokens.Validate(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, PasswordStateExpired, claims.PasswordState)
}

func TestLoginNeverChangedPasswordIsExpired(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	seedStaff(t, repo, models.RoleAdmin, nil)

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@warta.sch.id", Password: validPassword}, dto.RequestMeta{})
	require.NoError(t, err)
	require.True(t, result.PasswordExpired)
}

func TestLoginWarningBandSurfacesDaysRemaining(t *testing.T) {
	svc, repo, _, tokens := setupAuthService(t)
	at := time.Now().AddDate(0, 0, -80)
	seedStaff(t, repo, models.RoleAdmin, &at)

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@warta.sch.id", Password: validPassword}, dto.RequestMeta{})
	require.NoError(t, err)
	require.False(t, result.PasswordExpired)
	require.Equal(t, 10, result.DaysRemaining)

	claims, err := tokens.Validate(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, PasswordStateWarn, claims.PasswordState)
}

func TestChangePasswordRotatesAndClearsGate(t *testing.T) {
	svc, repo, audit, tokens := setupAuthService(t)
	old := time.Now().AddDate(0, 0, -120)
	user := seedStaff(t, repo, models.RoleAdmin, &old)

	response, err := svc.ChangePassword(context.Background(), user.ID, dto.ChangePasswordRequest{
		CurrentPassword: validPassword,
		NewPassword:     "N3w!secret",
	}, dto.RequestMeta{})
	require.NoError(t, err)

	claims, err := tokens.Validate(context.Background(), response.Token)
	require.NoError(t, err)
	require.Equal(t, PasswordStateOK, claims.PasswordState)

	require.Equal(t, models.AuditPasswordChanged, audit.last().Type)

	// Old password no longer works, new one does.
	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: user.Email, Password: validPassword}, dto.RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: user.Email, Password: "N3w!secret"}, dto.RequestMeta{})
	require.NoError(t, err)
	require.False(t, result.PasswordExpired)
}

func TestChangePasswordRejectsPolicyViolations(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	user := seedStaff(t, repo, models.RoleAdmin, recentChange())

	_, err := svc.ChangePassword(context.Background(), user.ID, dto.ChangePasswordRequest{
		CurrentPassword: validPassword,
		NewPassword:     "short",
	}, dto.RequestMeta{})
	require.ErrorIs(t, err, ErrPasswordPolicy)

	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	require.NotEmpty(t, policyErr.Violations)
}

func TestChangePasswordRejectsReuseAndWrongCurrent(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	user := seedStaff(t, repo, models.RoleAdmin, recentChange())

	_, err := svc.ChangePassword(context.Background(), user.ID, dto.ChangePasswordRequest{
		CurrentPassword: validPassword,
		NewPassword:     validPassword,
	}, dto.RequestMeta{})
	require.ErrorIs(t, err, ErrPasswordReused)

	_, err = svc.ChangePassword(context.Background(), user.ID, dto.ChangePasswordRequest{
		CurrentPassword: "Wrong1!pass",
		NewPassword:     "N3w!secret",
	}, dto.RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenLifecycle(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	user := seedStaff(t, repo, models.RoleAdmin, recentChange())

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: user.Email, Password: validPassword}, dto.RequestMeta{})
	require.NoError(t, err)

	status, err := svc.ValidateToken(context.Background(), result.Token)
	require.NoError(t, err)
	require.True(t, status.Valid)

	status, err = svc.ValidateToken(context.Background(), "garbage")
	require.NoError(t, err)
	require.False(t, status.Valid)

	// Deactivating the user invalidates an otherwise well-formed token.
	_, err = repo.Update(context.Background(), user.ID, map[string]interface{}{"active": false})
	require.NoError(t, err)

	status, err = svc.ValidateToken(context.Background(), result.Token)
	require.NoError(t, err)
	require.False(t, status.Valid)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, repo, audit, tokens := setupAuthService(t)
	user := seedStaff(t, repo, models.RoleAdmin, recentChange())

	result, err := svc.Login(context.Background(), dto.LoginRequest{Email: user.Email, Password: validPassword}, dto.RequestMeta{})
	require.NoError(t, err)

	claims, err := tokens.Validate(context.Background(), result.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims, dto.RequestMeta{}))
	require.Equal(t, models.AuditLogout, audit.last().Type)

	status, err := svc.ValidateToken(context.Background(), result.Token)
	require.NoError(t, err)
	require.False(t, status.Valid)
}

func TestCheckExpiry(t *testing.T) {
	svc, repo, _, _ := setupAuthService(t)
	user := seedStaff(t, repo, models.RoleAdmin, nil)

	status, err := svc.CheckExpiry(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, status.IsExpired)

	_, err = svc.CheckExpiry(context.Background(), 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}
