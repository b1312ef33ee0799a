package dto

import (
	"time"

	"github.com/noah-isme/warta-go-api/internal/models"
)

// LoginRequest is the credential login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequestMeta carries the caller context recorded on audit events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// UserResponse serializes an identity for authenticated clients.
type UserResponse struct {
	ID                   uint       `json:"id"`
	Email                string     `json:"email"`
	DisplayName          string     `json:"display_name"`
	Role                 string     `json:"role"`
	Active               bool       `json:"active"`
	LastPasswordChangeAt *time.Time `json:"last_password_change_at,omitempty"`
}

// NewUserResponse maps a user model to its response form.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:                   user.ID,
		Email:                user.Email,
		DisplayName:          user.DisplayName,
		Role:                 user.Role,
		Active:               user.Active,
		LastPasswordChangeAt: user.LastPasswordChangeAt,
	}
}

// LoginResponse is returned on successful credential login. When
// PasswordExpired is set the client must route to password change before
// anything else.
type LoginResponse struct {
	Token           string       `json:"token"`
	User            UserResponse `json:"user"`
	PasswordExpired bool         `json:"password_expired"`
	DaysRemaining   int          `json:"days_remaining"`
}

// TokenStatusResponse reports whether a previously issued token is still live.
type TokenStatusResponse struct {
	Valid bool `json:"valid"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePasswordResponse carries the replacement token issued after a
// successful rotation.
type ChangePasswordResponse struct {
	Token string `json:"token"`
}

// CheckUserExistsRequest asks whether an email is registered.
type CheckUserExistsRequest struct {
	Email string `json:"email"`
}

// CheckUserExistsResponse answers a registration probe.
type CheckUserExistsResponse struct {
	Exists bool `json:"exists"`
}

// MagicLinkRequest asks the provider to dispatch a one-time sign-in link.
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLinkCompleteRequest finishes a passwordless sign-in with the
// provider-issued session token.
type MagicLinkCompleteRequest struct {
	SessionToken string `json:"session_token"`
}

// MagicLinkCompleteResponse is returned when reconciliation succeeds.
type MagicLinkCompleteResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// VerifyMagicLinkUserRequest reconciles a provider identity with the registry.
type VerifyMagicLinkUserRequest struct {
	Email          string `json:"email"`
	ProviderUserID string `json:"provider_user_id"`
}

// PasswordStrengthRequest rates a candidate password for live UI feedback.
type PasswordStrengthRequest struct {
	Password string `json:"password"`
}
