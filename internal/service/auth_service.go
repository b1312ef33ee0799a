package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/observability"
	"github.com/noah-isme/warta-go-api/internal/password"
	"github.com/noah-isme/warta-go-api/internal/repository"
)

// Authentication failure sentinels. Handlers map these to HTTP responses;
// the generic invalid-credentials message never reveals which check failed.
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrUnauthorizedRole   = errors.New("role not permitted for this login surface")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordPolicy     = errors.New("password does not meet policy")
	ErrPasswordReused     = errors.New("new password must differ from the current one")
)

// PolicyError carries the full, ordered list of violated password rules.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string { return ErrPasswordPolicy.Error() }

// Unwrap lets handlers match the sentinel with errors.Is.
func (e *PolicyError) Unwrap() error { return ErrPasswordPolicy }

// AuthService is the credential authenticator plus session lifecycle:
// login, token validation, password rotation and logout.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest, meta dto.RequestMeta) (dto.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (dto.TokenStatusResponse, error)
	CheckExpiry(ctx context.Context, userID uint) (password.ExpiryStatus, error)
	ChangePassword(ctx context.Context, userID uint, req dto.ChangePasswordRequest, meta dto.RequestMeta) (dto.ChangePasswordResponse, error)
	Logout(ctx context.Context, claims SessionClaims, meta dto.RequestMeta) error
	CheckUserExists(ctx context.Context, email string) (bool, error)
}

type authService struct {
	users        repository.UserRepository
	tokens       TokenService
	audit        AuditRecorder
	rotationDays int
	warnDays     int
	logger       zerolog.Logger
}

// NewAuthService constructs the credential authenticator.
func NewAuthService(users repository.UserRepository, tokens TokenService, audit AuditRecorder, rotationDays, warnDays int, logger zerolog.Logger) AuthService {
	return &authService{
		users:        users,
		tokens:       tokens,
		audit:        audit,
		rotationDays: rotationDays,
		warnDays:     warnDays,
		logger:       logger.With().Str("component", "auth_service").Logger(),
	}
}

// Login verifies the credentials and classifies the password against the
// rotation policy. Every attempt, successful or not, records exactly one
// audit event.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest, meta dto.RequestMeta) (dto.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		s.auditFailure(ctx, email, nil, models.ReasonMissingCredentials, meta)
		return dto.LoginResponse{}, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.auditFailure(ctx, email, nil, models.ReasonInvalidCredentials, meta)
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("user lookup failed during login")
		s.auditError(ctx, email, models.ReasonSystemError, meta)
		return dto.LoginResponse{}, err
	}

	if !user.Active {
		s.auditFailure(ctx, email, &user, models.ReasonInactiveAccount, meta)
		return dto.LoginResponse{}, ErrInactiveAccount
	}

	// Reader roles authenticate through the magic-link surface only.
	if !user.IsStaff() {
		s.auditFailure(ctx, email, &user, models.ReasonUnauthorizedRole, meta)
		return dto.LoginResponse{}, ErrUnauthorizedRole
	}

	if user.PasswordHash == nil || !password.Compare(*user.PasswordHash, req.Password) {
		s.auditFailure(ctx, email, &user, models.ReasonInvalidCredentials, meta)
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	status := password.EvaluateExpiry(user.LastPasswordChangeAt, time.Now(), s.rotationDays, s.warnDays)
	gate := GateFromExpiry(status)

	token, err := s.tokens.Issue(user, gate.PasswordState())
	if err != nil {
		s.logger.Error().Err(err).Msg("token issuance failed during login")
		s.auditError(ctx, email, models.ReasonSystemError, meta)
		return dto.LoginResponse{}, err
	}

	actor := ParticipantFromUser(user)
	s.audit.Record(ctx, AuditEvent{
		Type:    models.AuditLoginSuccess,
		Success: true,
		Meta:    meta,
		Actor:   &actor,
	})
	observability.AuthAttempts().WithLabelValues("credential", "success").Inc()

	return dto.LoginResponse{
		Token:           token,
		User:            dto.NewUserResponse(user),
		PasswordExpired: status.IsExpired,
		DaysRemaining:   status.DaysRemaining,
	}, nil
}

// ValidateToken confirms a previously issued token is still live. Anything
// short of full success reports invalid so callers drop cached identities.
func (s *authService) ValidateToken(ctx context.Context, token string) (dto.TokenStatusResponse, error) {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return dto.TokenStatusResponse{Valid: false}, nil
		}
		return dto.TokenStatusResponse{Valid: false}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenStatusResponse{Valid: false}, nil
		}
		return dto.TokenStatusResponse{Valid: false}, err
	}

	return dto.TokenStatusResponse{Valid: user.Active}, nil
}

func (s *authService) CheckExpiry(ctx context.Context, userID uint) (password.ExpiryStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return password.ExpiryStatus{}, ErrUserNotFound
		}
		return password.ExpiryStatus{}, err
	}

	return password.EvaluateExpiry(user.LastPasswordChangeAt, time.Now(), s.rotationDays, s.warnDays), nil
}

// ChangePassword rotates the caller's password and issues a replacement
// token with a cleared gate state.
func (s *authService) ChangePassword(ctx context.Context, userID uint, req dto.ChangePasswordRequest, meta dto.RequestMeta) (dto.ChangePasswordResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChangePasswordResponse{}, ErrUserNotFound
		}
		return dto.ChangePasswordResponse{}, err
	}

	if user.PasswordHash == nil || !password.Compare(*user.PasswordHash, req.CurrentPassword) {
		return dto.ChangePasswordResponse{}, ErrInvalidCredentials
	}

	if req.NewPassword == req.CurrentPassword {
		return dto.ChangePasswordResponse{}, ErrPasswordReused
	}

	if result := password.Validate(req.NewPassword); !result.IsValid {
		return dto.ChangePasswordResponse{}, &PolicyError{Violations: result.Errors}
	}

	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return dto.ChangePasswordResponse{}, err
	}

	now := time.Now()
	updated, err := s.users.Update(ctx, user.ID, map[string]interface{}{
		"password_hash":           hash,
		"last_password_change_at": now,
	})
	if err != nil {
		return dto.ChangePasswordResponse{}, err
	}

	token, err := s.tokens.Issue(updated, PasswordStateOK)
	if err != nil {
		return dto.ChangePasswordResponse{}, err
	}

	actor := ParticipantFromUser(updated)
	s.audit.Record(ctx, AuditEvent{
		Type:       models.AuditPasswordChanged,
		Success:    true,
		Meta:       meta,
		Actor:      &actor,
		ChangeType: "password",
	})

	return dto.ChangePasswordResponse{Token: token}, nil
}

// Logout denylists the presented token. The client drops its cached
// token/identity pair unconditionally, even if revocation fails.
func (s *authService) Logout(ctx context.Context, claims SessionClaims, meta dto.RequestMeta) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}

	actor := AuditParticipant{Email: claims.Email, Role: claims.Role}
	if claims.UserID != 0 {
		id := claims.UserID
		actor.ID = &id
	}
	s.audit.Record(ctx, AuditEvent{
		Type:    models.AuditLogout,
		Success: true,
		Meta:    meta,
		Actor:   &actor,
	})

	return nil
}

func (s *authService) CheckUserExists(ctx context.Context, email string) (bool, error) {
	return s.users.ExistsByEmail(ctx, email)
}

func (s *authService) auditFailure(ctx context.Context, email string, user *models.User, reason string, meta dto.RequestMeta) {
	event := AuditEvent{
		Type:    models.AuditLoginFailed,
		Success: false,
		Reason:  reason,
		Meta:    meta,
	}
	if user != nil {
		target := ParticipantFromUser(*user)
		event.Target = &target
	} else if email != "" {
		event.Target = &AuditParticipant{Email: email}
	}

	s.audit.Record(ctx, event)
	observability.AuthAttempts().WithLabelValues("credential", "failure").Inc()
}

func (s *authService) auditError(ctx context.Context, email string, reason string, meta dto.RequestMeta) {
	event := AuditEvent{
		Type:    models.AuditLoginError,
		Success: false,
		Reason:  reason,
		Meta:    meta,
	}
	if email != "" {
		event.Target = &AuditParticipant{Email: email}
	}

	s.audit.Record(ctx, event)
	observability.AuthAttempts().WithLabelValues("credential", "error").Inc()
}
