package models

import "time"

// Roles recognised by the platform. Staff roles sign in with credentials,
// reader roles sign in through the passwordless magic-link provider.
const (
	RoleAdmin    = "admin"
	RoleEditor   = "editor"
	RoleTeacher  = "teacher"
	RoleStudent  = "student"
	RoleGuardian = "guardian"
)

// User is the application identity the authenticators verify against.
type User struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Email                string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	DisplayName          string     `gorm:"size:255;not null" json:"display_name"`
	Role                 string     `gorm:"size:32;not null" json:"role"`
	Active               bool       `gorm:"not null;default:true" json:"active"`
	PasswordHash         *string    `gorm:"size:255" json:"-"`
	ProviderUserID       *string    `gorm:"size:128;index" json:"-"`
	LastPasswordChangeAt *time.Time `json:"last_password_change_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	DeletedAt            *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// IsStaff reports whether the user belongs to the credential login surface.
func (u User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleEditor
}

// IsReader reports whether the user belongs to the magic-link login surface.
func (u User) IsReader() bool {
	return u.Role == RoleTeacher || u.Role == RoleStudent || u.Role == RoleGuardian
}

// ValidRole reports whether the supplied role is one the platform recognises.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEditor, RoleTeacher, RoleStudent, RoleGuardian:
		return true
	}
	return false
}
