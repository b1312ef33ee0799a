package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/warta-go-api/internal/service"
)

func gateApp(state string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalPasswordState, state)
		return c.Next()
	})
	app.Use(PasswordGate())
	app.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestPasswordGateBlocksExpiredSessions(t *testing.T) {
	app := gateApp(service.PasswordStateExpired)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestPasswordGatePassesWarningBand(t *testing.T) {
	for _, state := range []string{service.PasswordStateOK, service.PasswordStateWarn} {
		app := gateApp(state)

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, state)
	}
}
