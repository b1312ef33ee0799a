package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/middleware"
	"github.com/noah-isme/warta-go-api/internal/password"
	"github.com/noah-isme/warta-go-api/internal/service"
	"github.com/noah-isme/warta-go-api/internal/utils"
)

// AuthHandler wires the credential authentication and session endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic attaches the unauthenticated endpoints.
func (h *AuthHandler) RegisterPublic(router fiber.Router) {
	router.Post("/login", h.login)
	router.Post("/validate-token", h.validateToken)
	router.Post("/check-user-exists", h.checkUserExists)
	router.Post("/password-strength", h.passwordStrength)
}

// RegisterProtected attaches the endpoints that require a live session.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Post("/logout", h.logout)
	router.Post("/change-password", h.changePassword)
	router.Get("/password-expiry", h.passwordExpiry)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(c.UserContext(), payload, requestMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			return utils.SendError(c, fiber.StatusBadRequest, "email and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrInactiveAccount):
			return utils.SendError(c, fiber.StatusForbidden, "account is inactive")
		case errors.Is(err, service.ErrUnauthorizedRole):
			return utils.SendError(c, fiber.StatusForbidden, "this account signs in with a magic link")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "login failed")
		}
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) validateToken(c *fiber.Ctx) error {
	var payload struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	token := strings.TrimSpace(payload.Token)
	if token == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "token is required")
	}

	status, err := h.service.ValidateToken(c.UserContext(), token)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("token validation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "token validation failed")
	}

	return utils.SendSuccess(c, "token checked", status)
}

func (h *AuthHandler) checkUserExists(c *fiber.Ctx) error {
	var payload dto.CheckUserExistsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	email := strings.TrimSpace(payload.Email)
	if email == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email is required")
	}

	exists, err := h.service.CheckUserExists(c.UserContext(), email)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("user existence check failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "user existence check failed")
	}

	return utils.SendSuccess(c, "user checked", dto.CheckUserExistsResponse{Exists: exists})
}

// passwordStrength rates a candidate without persisting anything, so clients
// can render live feedback while the user types.
func (h *AuthHandler) passwordStrength(c *fiber.Ctx) error {
	var payload dto.PasswordStrengthRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result := password.Validate(payload.Password)
	strength := password.Score(payload.Password)

	return utils.SendSuccess(c, "password rated", fiber.Map{
		"is_valid": result.IsValid,
		"errors":   result.Errors,
		"strength": strength.Label,
		"score":    strength.Score,
	})
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	claims, ok := middleware.SessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.Logout(c.UserContext(), claims, requestMeta(c)); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("logout failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "logout failed")
	}

	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	response, err := h.service.ChangePassword(c.UserContext(), userID, payload, requestMeta(c))
	if err != nil {
		var policyErr *service.PolicyError
		switch {
		case errors.As(err, &policyErr):
			return utils.SendValidationError(c, "password does not meet policy", policyErr.Violations)
		case errors.Is(err, service.ErrPasswordReused):
			return utils.SendError(c, fiber.StatusBadRequest, "new password must differ from the current one")
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("password change failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "password change failed")
		}
	}

	return utils.SendSuccess(c, "password changed", response)
}

func (h *AuthHandler) passwordExpiry(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	status, err := h.service.CheckExpiry(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("expiry check failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "expiry check failed")
	}

	return utils.SendSuccess(c, "password expiry checked", status)
}
