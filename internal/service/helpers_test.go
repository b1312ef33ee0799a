package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// memoryUserRepo is an in-memory stand-in for the gorm user repository.
type memoryUserRepo struct {
	mu        sync.Mutex
	nextID    uint
	users     map[uint]models.User
	failureOn string
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{nextID: 1, users: map[uint]models.User{}}
}

func (m *memoryUserRepo) add(user models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == 0 {
		user.ID = m.nextID
	}
	if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.failureOn == "create" {
		return errDatabaseDown
	}
	*user = m.add(*user)
	return nil
}

func (m *memoryUserRepo) CreateBatch(ctx context.Context, users []*models.User) error {
	for _, user := range users {
		if err := m.Create(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	if m.failureOn == "get" {
		return models.User{}, errDatabaseDown
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if m.failureOn == "get" {
		return models.User{}, errDatabaseDown
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, user := range m.users {
		if strings.ToLower(user.Email) == normalized && user.DeletedAt == nil {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, err
}

func (m *memoryUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []models.User
	for _, user := range m.users {
		if user.DeletedAt != nil {
			continue
		}
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, int64(len(users)), nil
}

func (m *memoryUserRepo) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return models.User{}, gorm.ErrRecordNotFound
	}

	for key, value := range updates {
		switch key {
		case "display_name":
			user.DisplayName = value.(string)
		case "role":
			user.Role = value.(string)
		case "active":
			user.Active = value.(bool)
		case "password_hash":
			hash := value.(string)
			user.PasswordHash = &hash
		case "last_password_change_at":
			at := value.(time.Time)
			user.LastPasswordChangeAt = &at
		case "provider_user_id":
			providerID := value.(string)
			user.ProviderUserID = &providerID
		}
	}

	m.users[id] = user
	return user, nil
}

func (m *memoryUserRepo) SoftDelete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return gorm.ErrRecordNotFound
	}

	now := time.Now()
	user.DeletedAt = &now
	user.Active = false
	m.users[id] = user
	return nil
}

// recordingAudit collects events for assertions in authenticator tests.
type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (r *recordingAudit) Record(ctx context.Context, event AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) last() AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return AuditEvent{}
	}
	return r.events[len(r.events)-1]
}

func (r *recordingAudit) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
