package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/service"
	"github.com/noah-isme/warta-go-api/internal/utils"
)

// MagicLinkHandler wires the passwordless sign-in endpoints.
type MagicLinkHandler struct {
	service service.MagicLinkService
	logger  zerolog.Logger
}

// NewMagicLinkHandler constructs the handler.
func NewMagicLinkHandler(service service.MagicLinkService, logger zerolog.Logger) *MagicLinkHandler {
	return &MagicLinkHandler{
		service: service,
		logger:  logger.With().Str("component", "magic_link_handler").Logger(),
	}
}

// Register attaches the magic-link routes.
func (h *MagicLinkHandler) Register(router fiber.Router) {
	router.Post("/request", h.request)
	router.Post("/complete", h.complete)
	router.Post("/verify-user", h.verifyUser)
}

func (h *MagicLinkHandler) request(c *fiber.Ctx) error {
	var payload dto.MagicLinkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	err := h.service.RequestLink(c.UserContext(), payload.Email, requestMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			return utils.SendError(c, fiber.StatusBadRequest, "email is required")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrInactiveAccount):
			return utils.SendError(c, fiber.StatusForbidden, "account is inactive")
		case errors.Is(err, service.ErrUnauthorizedRole):
			return utils.SendError(c, fiber.StatusForbidden, "this account signs in with a password")
		case errors.Is(err, service.ErrAuthenticationFailed):
			return utils.SendError(c, fiber.StatusBadGateway, "sign-in provider unavailable")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("magic link request failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "magic link request failed")
		}
	}

	return utils.SendSuccess(c, "magic link sent", nil)
}

func (h *MagicLinkHandler) complete(c *fiber.Ctx) error {
	var payload dto.MagicLinkCompleteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if strings.TrimSpace(payload.SessionToken) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "session token is required")
	}

	response, err := h.service.CompleteLink(c.UserContext(), payload.SessionToken, requestMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkRetryable):
			return c.Status(fiber.StatusUnauthorized).JSON(utils.APIResponse{
				Success: false,
				Message: "magic link already used",
				Data:    fiber.Map{"retryable": true},
			})
		case errors.Is(err, service.ErrLinkNotRetryable):
			return c.Status(fiber.StatusUnauthorized).JSON(utils.APIResponse{
				Success: false,
				Message: "magic link already used",
				Data:    fiber.Map{"retryable": false},
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid or expired magic link")
		// The registry rejected the provider identity; the provider session
		// was already signed out. Keep the response indistinguishable.
		case errors.Is(err, service.ErrUserNotFound),
			errors.Is(err, service.ErrInactiveAccount),
			errors.Is(err, service.ErrUnauthorizedRole):
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication failed")
		case errors.Is(err, service.ErrAuthenticationFailed):
			return utils.SendError(c, fiber.StatusBadGateway, "sign-in provider unavailable")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("magic link completion failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "magic link completion failed")
		}
	}

	return utils.SendSuccess(c, "signed in", response)
}

func (h *MagicLinkHandler) verifyUser(c *fiber.Ctx) error {
	var payload dto.VerifyMagicLinkUserRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if strings.TrimSpace(payload.Email) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email is required")
	}

	user, err := h.service.VerifyMagicLinkUser(c.UserContext(), payload.Email, payload.ProviderUserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrInactiveAccount):
			return utils.SendError(c, fiber.StatusForbidden, "account is inactive")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("magic link user verification failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "verification failed")
		}
	}

	return utils.SendSuccess(c, "user verified", user)
}
