package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit event types recorded by the authentication subsystem.
const (
	AuditLoginSuccess       = "login_success"
	AuditLoginFailed        = "login_failed"
	AuditLoginError         = "login_error"
	AuditMagicLinkRequested = "magic_link_requested"
	AuditMagicLinkSuccess   = "magic_link_success"
	AuditMagicLinkFailed    = "magic_link_failed"
	AuditMagicLinkError     = "magic_link_error"
	AuditPasswordChanged    = "password_changed"
	AuditLogout             = "logout"
	AuditUserCreated        = "user_created"
	AuditUserUpdated        = "user_updated"
	AuditUserStatusChanged  = "user_status_changed"
	AuditUserDeleted        = "user_deleted"
	AuditUsersBulkCreated   = "users_bulk_created"
)

// Failure reasons attached to unsuccessful audit events.
const (
	ReasonMissingCredentials    = "missing_credentials"
	ReasonInvalidCredentials    = "invalid_credentials"
	ReasonInactiveAccount       = "inactive_account"
	ReasonUnauthorizedRole      = "unauthorized_role"
	ReasonAuthenticationFailed  = "authentication_failed"
	ReasonSystemError           = "system_error"
	ReasonUserNotFound          = "user_not_found"
	ReasonInvalidOrExpiredToken = "invalid_or_expired_token"
	ReasonTokenAlreadyUsed      = "token_already_used"
	ReasonTokenExpired          = "token_expired"
)

// AuditLog is one immutable security-relevant event. Rows are append-only:
// the repository exposes create and filtered reads, never update or delete.
type AuditLog struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Type        string            `gorm:"size:64;not null;index" json:"type"`
	Success     bool              `gorm:"not null" json:"success"`
	Reason      string            `gorm:"size:64" json:"reason,omitempty"`
	IPAddress   string            `gorm:"size:64" json:"ip_address"`
	UserAgent   string            `gorm:"size:512" json:"user_agent"`
	ActorID     *uint             `json:"actor_id,omitempty"`
	ActorEmail  string            `gorm:"size:255;index" json:"actor_email,omitempty"`
	ActorName   string            `gorm:"size:255" json:"actor_name,omitempty"`
	ActorRole   string            `gorm:"size:32" json:"actor_role,omitempty"`
	TargetID    *uint             `json:"target_id,omitempty"`
	TargetEmail string            `gorm:"size:255;index" json:"target_email,omitempty"`
	TargetName  string            `gorm:"size:255" json:"target_name,omitempty"`
	TargetRole  string            `gorm:"size:32" json:"target_role,omitempty"`
	ChangeType  string            `gorm:"size:64" json:"change_type,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}
