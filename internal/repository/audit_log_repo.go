package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/warta-go-api/internal/models"
)

// DefaultAuditLimit caps audit queries that do not request an explicit limit.
const DefaultAuditLimit = 100

// MaxAuditLimit is the hard ceiling for a single audit query.
const MaxAuditLimit = 500

// AuditLogFilter narrows audit trail queries. All provided filters must
// match; the email filter matches either actor or target.
type AuditLogFilter struct {
	Type      string
	Email     string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// AuditLogRepository persists the append-only audit trail.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository constructs the audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if email := strings.ToLower(strings.TrimSpace(filter.Email)); email != "" {
		query = query.Where("LOWER(actor_email) = ? OR LOWER(target_email) = ?", email, email)
	}

	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}

	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}

	var entries []models.AuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
