package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/warta-go-api/internal/service"
	"github.com/noah-isme/warta-go-api/internal/utils"
)

// Context locals populated by JWTProtected.
const (
	LocalUserID        = "user_id"
	LocalUserEmail     = "user_email"
	LocalUserRole      = "user_role"
	LocalPasswordState = "pwd_state"
	LocalSessionClaims = "session_claims"
)

// JWTProtected returns a middleware that validates bearer tokens against the
// signing key and the revocation denylist, then binds the session identity
// to the request.
func JWTProtected(tokens service.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, err := tokens.Validate(c.UserContext(), tokenString)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUserEmail, claims.Email)
		c.Locals(LocalUserRole, claims.Role)
		c.Locals(LocalPasswordState, claims.PasswordState)
		c.Locals(LocalSessionClaims, claims)

		return c.Next()
	}
}

// SessionFromContext returns the claims bound by JWTProtected, if any.
func SessionFromContext(c *fiber.Ctx) (service.SessionClaims, bool) {
	claims, ok := c.Locals(LocalSessionClaims).(service.SessionClaims)
	return claims, ok
}
