package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/password"
	"github.com/noah-isme/warta-go-api/internal/repository"
)

// Admin user management failure sentinels.
var (
	ErrAdminUserNotFound = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrPasswordForbidden = errors.New("reader roles must not carry a password")
	ErrBulkPayload       = errors.New("bulk payload does not match schema")
)

// bulkUsersSchema constrains the bulk-create payload before any row is
// processed. Reader roles only; passwords are assigned through the
// credential flow, never bulk-imported.
const bulkUsersSchema = `{
	"type": "object",
	"required": ["users"],
	"properties": {
		"users": {
			"type": "array",
			"minItems": 1,
			"maxItems": 500,
			"items": {
				"type": "object",
				"required": ["email", "display_name", "role"],
				"properties": {
					"email": {"type": "string", "format": "email"},
					"display_name": {"type": "string", "minLength": 2, "maxLength": 255},
					"role": {"enum": ["teacher", "student", "guardian"]}
				}
			}
		}
	}
}`

// AdminUserService manages the user registry the authenticators verify
// against. All operations are admin-gated and audited.
type AdminUserService interface {
	List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error)
	Create(ctx context.Context, req dto.CreateUserRequest, actor AuditParticipant, meta dto.RequestMeta) (dto.UserResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateUserRequest, actor AuditParticipant, meta dto.RequestMeta) (dto.UserResponse, error)
	ToggleStatus(ctx context.Context, id uint, actor AuditParticipant, meta dto.RequestMeta) (dto.ToggleUserStatusResponse, error)
	Delete(ctx context.Context, id uint, actor AuditParticipant, meta dto.RequestMeta) error
	BulkCreate(ctx context.Context, raw []byte, actor AuditParticipant, meta dto.RequestMeta) (dto.BulkCreateUsersResponse, error)
}

type adminUserService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	audit     AuditRecorder
	sanitizer *bluemonday.Policy
	schema    *jsonschema.Schema
	logger    zerolog.Logger
}

// NewAdminUserService constructs the admin user service.
func NewAdminUserService(repo repository.UserRepository, validate *validator.Validate, audit AuditRecorder, logger zerolog.Logger) (AdminUserService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("bulk_users.json", strings.NewReader(bulkUsersSchema)); err != nil {
		return nil, fmt.Errorf("failed to register bulk user schema: %w", err)
	}

	schema, err := compiler.Compile("bulk_users.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile bulk user schema: %w", err)
	}

	return &adminUserService{
		repo:      repo,
		validator: validate,
		audit:     audit,
		sanitizer: bluemonday.StrictPolicy(),
		schema:    schema,
		logger:    logger.With().Str("component", "admin_user_service").Logger(),
	}, nil
}

func (s *adminUserService) List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error) {
	filter := repository.UserFilter{
		Search:   strings.TrimSpace(req.Search),
		Role:     strings.TrimSpace(req.Role),
		Status:   strings.TrimSpace(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.UserListResponse{}, err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, dto.NewUserResponse(user))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.UserListResponse{Items: responses, Pagination: pagination}, nil
}

func (s *adminUserService) Create(ctx context.Context, req dto.CreateUserRequest, actor AuditParticipant, meta dto.RequestMeta) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.buildUser(ctx, req)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return dto.UserResponse{}, err
	}

	target := ParticipantFromUser(*user)
	s.audit.Record(ctx, AuditEvent{
		Type:       models.AuditUserCreated,
		Success:    true,
		Meta:       meta,
		Actor:      &actor,
		Target:     &target,
		ChangeType: "create",
	})

	return dto.NewUserResponse(*user), nil
}

func (s *adminUserService) Update(ctx context.Context, id uint, req dto.UpdateUserRequest, actor AuditParticipant, meta dto.RequestMeta) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{}
	changed := []string{}

	if req.DisplayName != nil {
		updates["display_name"] = s.sanitizer.Sanitize(strings.TrimSpace(*req.DisplayName))
		changed = append(changed, "display_name")
	}

	if req.Role != nil {
		updates["role"] = *req.Role
		changed = append(changed, "role")
	}

	if len(updates) == 0 {
		user, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.UserResponse{}, ErrAdminUserNotFound
			}
			return dto.UserResponse{}, err
		}
		return dto.NewUserResponse(user), nil
	}

	user, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrAdminUserNotFound
		}
		return dto.UserResponse{}, err
	}

	target := ParticipantFromUser(user)
	s.audit.Record(ctx, AuditEvent{
		Type:       models.AuditUserUpdated,
		Success:    true,
		Meta:       meta,
		Actor:      &actor,
		Target:     &target,
		ChangeType: strings.Join(changed, ","),
	})

	return dto.NewUserResponse(user), nil
}

func (s *adminUserService) ToggleStatus(ctx context.Context, id uint, actor AuditParticipant, meta dto.RequestMeta) (dto.ToggleUserStatusResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ToggleUserStatusResponse{}, ErrAdminUserNotFound
		}
		return dto.ToggleUserStatusResponse{}, err
	}

	updated, err := s.repo.Update(ctx, id, map[string]interface{}{"active": !user.Active})
	if err != nil {
		return dto.ToggleUserStatusResponse{}, err
	}

	changeType := "pause"
	if updated.Active {
		changeType = "resume"
	}

	target := ParticipantFromUser(updated)
	s.audit.Record(ctx, AuditEvent{
		Type:       models.AuditUserStatusChanged,
		Success:    true,
		Meta:       meta,
		Actor:      &actor,
		Target:     &target,
		ChangeType: changeType,
	})

	return dto.ToggleUserStatusResponse{ID: updated.ID, Active: updated.Active}, nil
}

func (s *adminUserService) Delete(ctx context.Context, id uint, actor AuditParticipant, meta dto.RequestMeta) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminUserNotFound
		}
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminUserNotFound
		}
		return err
	}

	target := ParticipantFromUser(user)
	s.audit.Record(ctx, AuditEvent{
		Type:       models.AuditUserDeleted,
		Success:    true,
		Meta:       meta,
		Actor:      &actor,
		Target:     &target,
		ChangeType: "delete",
	})

	return nil
}

// BulkCreate validates the raw payload against the bulk schema, then
// processes rows independently so one bad row never aborts the batch.
func (s *adminUserService) BulkCreate(ctx context.Context, raw []byte, actor AuditParticipant, meta dto.RequestMeta) (dto.BulkCreateUsersResponse, error) {
	payload, err := decodeBulkPayload(s.schema, raw)
	if err != nil {
		return dto.BulkCreateUsersResponse{}, err
	}

	response := dto.BulkCreateUsersResponse{Outcomes: make([]dto.BulkCreateOutcome, 0, len(payload.Users))}

	for _, row := range payload.Users {
		outcome := dto.BulkCreateOutcome{Email: row.Email}

		user, err := s.buildUser(ctx, row)
		if err == nil {
			err = s.repo.Create(ctx, user)
		}

		if err != nil {
			outcome.Error = err.Error()
			response.Failed++
		} else {
			outcome.Created = true
			response.Created++
		}

		response.Outcomes = append(response.Outcomes, outcome)
	}

	s.audit.Record(ctx, AuditEvent{
		Type:       models.AuditUsersBulkCreated,
		Success:    response.Failed == 0,
		Meta:       meta,
		Actor:      &actor,
		ChangeType: "bulk_create",
		Metadata: map[string]interface{}{
			"created": response.Created,
			"failed":  response.Failed,
		},
	})

	return response, nil
}

func (s *adminUserService) buildUser(ctx context.Context, req dto.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	user := &models.User{
		Email:       email,
		DisplayName: s.sanitizer.Sanitize(strings.TrimSpace(req.DisplayName)),
		Role:        req.Role,
		Active:      true,
	}

	switch {
	case user.IsStaff():
		if result := password.Validate(req.Password); !result.IsValid {
			return nil, &PolicyError{Violations: result.Errors}
		}
		hash, err := password.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		user.PasswordHash = &hash
		user.LastPasswordChangeAt = &now
	case req.Password != "":
		return nil, ErrPasswordForbidden
	}

	return user, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
