package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/observability"
	"github.com/noah-isme/warta-go-api/internal/repository"
)

const auditSubscriberBuffer = 16

// AuditParticipant identifies the actor or target of an audit event.
type AuditParticipant struct {
	ID    *uint
	Email string
	Name  string
	Role  string
}

// ParticipantFromUser builds an audit participant from a registry identity.
func ParticipantFromUser(user models.User) AuditParticipant {
	id := user.ID
	return AuditParticipant{ID: &id, Email: user.Email, Name: user.DisplayName, Role: user.Role}
}

// AuditEvent captures one security-relevant action before persistence.
type AuditEvent struct {
	Type       string
	Success    bool
	Reason     string
	Meta       dto.RequestMeta
	Actor      *AuditParticipant
	Target     *AuditParticipant
	ChangeType string
	Metadata   map[string]interface{}
}

// AuditRecorder is the write side of the sink, injected into the
// authenticators and the admin services.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent)
}

// AuditService is the append-only audit sink: best-effort writes, filtered
// reads, derived statistics and a live feed for admin consumers.
type AuditService interface {
	AuditRecorder
	Query(ctx context.Context, req dto.AuditQueryRequest) ([]dto.AuditEventResponse, error)
	Stats(events []dto.AuditEventResponse) dto.AuditStatsResponse
	Subscribe() (<-chan dto.AuditEventResponse, func())
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger zerolog.Logger

	mu          sync.RWMutex
	subscribers map[chan dto.AuditEventResponse]struct{}
}

// NewAuditService constructs the audit sink.
func NewAuditService(repo repository.AuditLogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:        repo,
		logger:      logger.With().Str("component", "audit_service").Logger(),
		subscribers: make(map[chan dto.AuditEventResponse]struct{}),
	}
}

// Record persists the event and fans it out to live subscribers. Failures
// are logged and swallowed: audit logging must never fail or block the
// operation that produced the event.
func (s *auditService) Record(ctx context.Context, event AuditEvent) {
	entry := models.AuditLog{
		Type:       event.Type,
		Success:    event.Success,
		Reason:     event.Reason,
		IPAddress:  event.Meta.IPAddress,
		UserAgent:  event.Meta.UserAgent,
		ChangeType: event.ChangeType,
		Metadata:   sanitizeMetadata(event.Metadata),
	}

	if event.Actor != nil {
		entry.ActorID = event.Actor.ID
		entry.ActorEmail = event.Actor.Email
		entry.ActorName = event.Actor.Name
		entry.ActorRole = event.Actor.Role
	}

	if event.Target != nil {
		entry.TargetID = event.Target.ID
		entry.TargetEmail = event.Target.Email
		entry.TargetName = event.Target.Name
		entry.TargetRole = event.Target.Role
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		s.logger.Error().Err(err).Str("type", event.Type).Msg("failed to persist audit event")
		return
	}

	observability.AuditEvents().WithLabelValues(event.Type, successLabel(event.Success)).Inc()
	s.broadcast(dto.NewAuditEventResponse(entry))
}

func (s *auditService) Query(ctx context.Context, req dto.AuditQueryRequest) ([]dto.AuditEventResponse, error) {
	filter := repository.AuditLogFilter{
		Type:      strings.TrimSpace(req.Type),
		Email:     strings.TrimSpace(req.Email),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Limit:     req.Limit,
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AuditEventResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditEventResponse(entry))
	}

	return responses, nil
}

// Stats derives aggregates from an already-queried sequence; the sink itself
// precomputes nothing.
func (s *auditService) Stats(events []dto.AuditEventResponse) dto.AuditStatsResponse {
	stats := dto.AuditStatsResponse{Total: len(events)}
	actors := make(map[string]struct{})

	for _, event := range events {
		if event.Success {
			stats.Success++
		} else {
			stats.Failure++
		}
		if event.Actor != nil && event.Actor.Email != "" {
			actors[strings.ToLower(event.Actor.Email)] = struct{}{}
		}
	}

	stats.UniqueActors = len(actors)
	return stats
}

// Subscribe registers a live feed consumer. The returned cancel func must be
// called on teardown; slow consumers are skipped rather than blocking Record.
func (s *auditService) Subscribe() (<-chan dto.AuditEventResponse, func()) {
	ch := make(chan dto.AuditEventResponse, auditSubscriberBuffer)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}

	return ch, cancel
}

func (s *auditService) broadcast(event dto.AuditEventResponse) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return nil
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func successLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
