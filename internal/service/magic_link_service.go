package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/observability"
	"github.com/noah-isme/warta-go-api/internal/repository"
	"github.com/noah-isme/warta-go-api/pkg/magiclink"
)

// ErrLinkNotRetryable marks a magic-link failure whose one-time link is
// burned; ErrLinkRetryable marks the same failure under the retry-eligible
// policy. Which one a consumed-token failure maps to is configuration.
var (
	ErrLinkNotRetryable = errors.New("magic link consumed")
	ErrLinkRetryable    = errors.New("magic link consumed, retry permitted")
)

// ErrAuthenticationFailed wraps provider-level faults surfaced to callers.
var ErrAuthenticationFailed = errors.New("authentication failed")

// MagicLinkProvider is the slice of the external passwordless provider the
// authenticator needs. Implemented by pkg/magiclink.
type MagicLinkProvider interface {
	SendLink(ctx context.Context, email string) error
	GetSession(ctx context.Context, sessionToken string) (magiclink.Session, error)
	SignOut(ctx context.Context, sessionToken string) error
}

// MagicLinkService coordinates the passwordless flow: link dispatch,
// session reconciliation against the application registry, and the
// provider-identity verification endpoint.
type MagicLinkService interface {
	RequestLink(ctx context.Context, email string, meta dto.RequestMeta) error
	CompleteLink(ctx context.Context, sessionToken string, meta dto.RequestMeta) (dto.MagicLinkCompleteResponse, error)
	VerifyMagicLinkUser(ctx context.Context, email, providerUserID string) (dto.UserResponse, error)
}

type magicLinkService struct {
	users       repository.UserRepository
	provider    MagicLinkProvider
	tokens      TokenService
	audit       AuditRecorder
	retryBurned bool
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewMagicLinkService constructs the magic-link authenticator.
func NewMagicLinkService(users repository.UserRepository, provider MagicLinkProvider, tokens TokenService, audit AuditRecorder, retryBurned bool, logger zerolog.Logger) MagicLinkService {
	return &magicLinkService{
		users:       users,
		provider:    provider,
		tokens:      tokens,
		audit:       audit,
		retryBurned: retryBurned,
		logger:      logger.With().Str("component", "magic_link_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/warta-go-api/internal/service/magiclink"),
	}
}

// RequestLink asks the provider to dispatch a one-time link, but only after
// the application registry confirms the email belongs to an active reader.
// The provider is never invited to authenticate an email the registry does
// not know.
func (s *magicLinkService) RequestLink(ctx context.Context, email string, meta dto.RequestMeta) error {
	ctx, span := s.tracer.Start(ctx, "magiclink.request", trace.WithAttributes(attribute.String("auth.mode", "magic_link")))
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		s.auditOutcome(ctx, models.AuditMagicLinkFailed, models.ReasonMissingCredentials, nil, email, meta)
		return ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.auditOutcome(ctx, models.AuditMagicLinkFailed, models.ReasonUserNotFound, nil, email, meta)
			return ErrUserNotFound
		}
		s.logger.Error().Err(err).Msg("registry lookup failed during link request")
		s.auditOutcome(ctx, models.AuditMagicLinkError, models.ReasonSystemError, nil, email, meta)
		return err
	}

	if !user.Active {
		s.auditOutcome(ctx, models.AuditMagicLinkFailed, models.ReasonInactiveAccount, &user, email, meta)
		return ErrInactiveAccount
	}

	// Staff roles authenticate with credentials, never through the provider.
	if user.IsStaff() {
		s.auditOutcome(ctx, models.AuditMagicLinkFailed, models.ReasonUnauthorizedRole, &user, email, meta)
		return ErrUnauthorizedRole
	}

	if err := s.provider.SendLink(ctx, email); err != nil {
		s.logger.Error().Err(err).Msg("provider rejected link dispatch")
		s.auditOutcome(ctx, models.AuditMagicLinkError, models.ReasonAuthenticationFailed, &user, email, meta)
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	target := ParticipantFromUser(user)
	s.audit.Record(ctx, AuditEvent{
		Type:    models.AuditMagicLinkRequested,
		Success: true,
		Meta:    meta,
		Target:  &target,
	})

	s.logger.Info().Msg("magic link requested")
	return nil
}

// CompleteLink reconciles a provider session against the registry. A
// provider identity with no matching active application identity is signed
// out of the provider and never granted application access.
func (s *magicLinkService) CompleteLink(ctx context.Context, sessionToken string, meta dto.RequestMeta) (dto.MagicLinkCompleteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "magiclink.complete", trace.WithAttributes(attribute.String("auth.mode", "magic_link")))
	defer span.End()

	session, err := s.provider.GetSession(ctx, sessionToken)
	if err != nil {
		return dto.MagicLinkCompleteResponse{}, s.sessionError(ctx, err, meta)
	}

	user, err := s.users.GetByEmail(ctx, session.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.failClosed(ctx, session, models.ReasonUserNotFound, nil, meta)
			return dto.MagicLinkCompleteResponse{}, ErrUserNotFound
		}
		s.logger.Error().Err(err).Msg("registry lookup failed during link completion")
		s.auditOutcome(ctx, models.AuditMagicLinkError, models.ReasonSystemError, nil, session.Email, meta)
		return dto.MagicLinkCompleteResponse{}, err
	}

	if !user.Active {
		s.failClosed(ctx, session, models.ReasonInactiveAccount, &user, meta)
		return dto.MagicLinkCompleteResponse{}, ErrInactiveAccount
	}

	if user.IsStaff() {
		s.failClosed(ctx, session, models.ReasonUnauthorizedRole, &user, meta)
		return dto.MagicLinkCompleteResponse{}, ErrUnauthorizedRole
	}

	if user.ProviderUserID == nil && session.ProviderUserID != "" {
		providerID := session.ProviderUserID
		if updated, err := s.users.Update(ctx, user.ID, map[string]interface{}{"provider_user_id": providerID}); err == nil {
			user = updated
		} else {
			s.logger.Warn().Err(err).Msg("failed to store provider user id")
		}
	}

	token, err := s.tokens.Issue(user, PasswordStateOK)
	if err != nil {
		s.logger.Error().Err(err).Msg("token issuance failed during link completion")
		s.auditOutcome(ctx, models.AuditMagicLinkError, models.ReasonSystemError, &user, session.Email, meta)
		return dto.MagicLinkCompleteResponse{}, err
	}

	actor := ParticipantFromUser(user)
	s.audit.Record(ctx, AuditEvent{
		Type:    models.AuditMagicLinkSuccess,
		Success: true,
		Meta:    meta,
		Actor:   &actor,
	})
	observability.AuthAttempts().WithLabelValues("magic_link", "success").Inc()

	return dto.MagicLinkCompleteResponse{Token: token, User: dto.NewUserResponse(user)}, nil
}

// VerifyMagicLinkUser reconciles a provider identity with the registry
// without issuing a session.
func (s *magicLinkService) VerifyMagicLinkUser(ctx context.Context, email, providerUserID string) (dto.UserResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	if !user.Active {
		return dto.UserResponse{}, ErrInactiveAccount
	}

	if user.ProviderUserID != nil && providerUserID != "" && *user.ProviderUserID != providerUserID {
		return dto.UserResponse{}, ErrUserNotFound
	}

	return dto.NewUserResponse(user), nil
}

func (s *magicLinkService) sessionError(ctx context.Context, err error, meta dto.RequestMeta) error {
	switch {
	case errors.Is(err, magiclink.ErrTokenAlreadyUsed):
		s.auditOutcome(ctx, models.AuditMagicLinkFailed, models.ReasonTokenAlreadyUsed, nil, "", meta)
		if s.retryBurned {
			return ErrLinkRetryable
		}
		return ErrLinkNotRetryable
	case errors.Is(err, magiclink.ErrTokenExpired):
		s.auditOutcome(ctx, models.AuditMagicLinkFailed, models.ReasonTokenExpired, nil, "", meta)
		return ErrInvalidCredentials
	case errors.Is(err, magiclink.ErrInvalidOrExpiredToken):
		s.auditOutcome(ctx, models.AuditMagicLinkFailed, models.ReasonInvalidOrExpiredToken, nil, "", meta)
		return ErrInvalidCredentials
	default:
		s.logger.Error().Err(err).Msg("provider session lookup failed")
		s.auditOutcome(ctx, models.AuditMagicLinkError, models.ReasonAuthenticationFailed, nil, "", meta)
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
}

// failClosed signs the orphaned provider session out before reporting the
// failure, so provider identity alone never grants application access.
func (s *magicLinkService) failClosed(ctx context.Context, session magiclink.Session, reason string, user *models.User, meta dto.RequestMeta) {
	if err := s.provider.SignOut(ctx, session.SessionToken); err != nil {
		s.logger.Warn().Err(err).Msg("failed to sign out orphaned provider session")
	}

	s.auditOutcome(ctx, models.AuditMagicLinkFailed, reason, user, session.Email, meta)
}

func (s *magicLinkService) auditOutcome(ctx context.Context, eventType, reason string, user *models.User, email string, meta dto.RequestMeta) {
	event := AuditEvent{
		Type:    eventType,
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
	observability.AuthAttempts().WithLabelValues("magic_link", "failure").Inc()
}
