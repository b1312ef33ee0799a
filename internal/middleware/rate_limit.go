package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a rate limiter instance scoped to the given identifier.
// Authenticated requests are limited per user; anonymous requests, including
// the sign-in endpoints, fall back to the client IP.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			key := c.IP()
			if userID, ok := c.Locals(LocalUserID).(uint); ok && userID > 0 {
				key = fmt.Sprintf("%d", userID)
			}
			return fmt.Sprintf("%s:%s", identifier, key)
		},
	})
}
