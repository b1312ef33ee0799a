package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/warta-go-api/internal/dto"
	"github.com/noah-isme/warta-go-api/internal/service"
	"github.com/noah-isme/warta-go-api/internal/utils"
)

// AuditHandler exposes the audit trail to admin consumers: filtered queries,
// derived statistics and a live websocket feed.
type AuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches the audit routes to the router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.query)
	router.Get("/stats", h.stats)

	router.Use("/live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/live", websocket.New(h.live))
}

func (h *AuditHandler) query(c *fiber.Ctx) error {
	req, err := h.parseQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	events, err := h.service.Query(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to query audit trail")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to query audit trail")
	}

	return utils.SendSuccess(c, "audit events retrieved", events)
}

func (h *AuditHandler) stats(c *fiber.Ctx) error {
	req, err := h.parseQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	events, err := h.service.Query(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to query audit trail")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to query audit trail")
	}

	return utils.SendSuccess(c, "audit statistics derived", h.service.Stats(events))
}

// live streams audit events to the connected admin as they are recorded.
func (h *AuditHandler) live(conn *websocket.Conn) {
	events, cancel := h.service.Subscribe()
	defer cancel()
	defer conn.Close()

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

func (h *AuditHandler) parseQuery(c *fiber.Ctx) (dto.AuditQueryRequest, error) {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return dto.AuditQueryRequest{}, fiber.NewError(fiber.StatusBadRequest, "invalid limit")
	}

	req := dto.AuditQueryRequest{
		Type:  c.Query("type"),
		Email: c.Query("email"),
		Limit: limit,
	}

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return dto.AuditQueryRequest{}, fiber.NewError(fiber.StatusBadRequest, "invalid start_date")
		}
		req.StartDate = &parsed
	}

	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return dto.AuditQueryRequest{}, fiber.NewError(fiber.StatusBadRequest, "invalid end_date")
		}
		req.EndDate = &parsed
	}

	return req, nil
}
