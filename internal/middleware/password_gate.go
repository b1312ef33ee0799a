package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/warta-go-api/internal/service"
	"github.com/noah-isme/warta-go-api/internal/utils"
)

// PasswordGate blocks sessions whose password rotation deadline has passed.
// It is attached to every authenticated route except the change-password,
// token-validation and logout escape hatches, so an expired credential can
// still be rotated and the session cleanly ended.
func PasswordGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, _ := c.Locals(LocalPasswordState).(string)
		if state == service.PasswordStateExpired {
			return utils.SendError(c, fiber.StatusForbidden, "password expired, change required")
		}
		return c.Next()
	}
}
