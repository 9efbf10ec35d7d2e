package middleware

import (
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected verifies tokens issued by the account service.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg, nil))
}

// AdminJWT is JWTProtected for the admin group. Requests carrying an
// X-Admin-Token skip verification and are checked by AdminRequired instead.
func AdminJWT(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg, func(c *fiber.Ctx) bool {
		return cfg.AdminTokenHash != "" && c.Get("X-Admin-Token") != ""
	}))
}

func jwtConfig(cfg *config.Config, filter func(*fiber.Ctx) bool) jwtware.Config {
	return jwtware.Config{
		Filter:     filter,
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	}
}
