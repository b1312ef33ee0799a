package dto

import (
	"time"

	"github.com/noah-isme/warta-go-api/internal/models"
)

// AuditActor identifies a participant in an audit event.
type AuditActor struct {
	ID    *uint  `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// AuditEventResponse serializes one audit trail entry.
type AuditEventResponse struct {
	ID         uint                   `json:"id"`
	Type       string                 `json:"type"`
	Success    bool                   `json:"success"`
	Reason     string                 `json:"reason,omitempty"`
	IPAddress  string                 `json:"ip_address"`
	UserAgent  string                 `json:"user_agent"`
	Actor      *AuditActor            `json:"actor,omitempty"`
	Target     *AuditActor            `json:"target,omitempty"`
	ChangeType string                 `json:"change_type,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewAuditEventResponse maps an audit log row to its response form.
func NewAuditEventResponse(entry models.AuditLog) AuditEventResponse {
	response := AuditEventResponse{
		ID:         entry.ID,
		Type:       entry.Type,
		Success:    entry.Success,
		Reason:     entry.Reason,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		ChangeType: entry.ChangeType,
		Metadata:   entry.Metadata,
		Timestamp:  entry.CreatedAt,
	}

	if entry.ActorID != nil || entry.ActorEmail != "" {
		response.Actor = &AuditActor{ID: entry.ActorID, Email: entry.ActorEmail, Name: entry.ActorName, Role: entry.ActorRole}
	}

	if entry.TargetID != nil || entry.TargetEmail != "" {
		response.Target = &AuditActor{ID: entry.TargetID, Email: entry.TargetEmail, Name: entry.TargetName, Role: entry.TargetRole}
	}

	return response
}

// AuditQueryRequest filters the audit trail. Filters are conjunctive.
type AuditQueryRequest struct {
	Type      string
	Email     string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// AuditStatsResponse aggregates a queried slice of the audit trail. The
// figures are derived from the returned events, not precomputed by the sink.
type AuditStatsResponse struct {
	Total        int `json:"total"`
	Success      int `json:"success"`
	Failure      int `json:"failure"`
	UniqueActors int `json:"unique_actors"`
}
