package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminTokenModerator is recorded as the moderator for X-Admin-Token requests.
const AdminTokenModerator = "admin-token"

// AdminRequired admits a request when:
// 1. X-Admin-Token matches the configured bcrypt hash
// 2. the JWT subject or email is on the configured admin lists
// 3. the JWT subject is a user whose role is admin
// It stores the moderator id for handlers to read with ModeratorID.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if cfg.AdminTokenHash != "" {
			if token := c.Get("X-Admin-Token"); token != "" {
				if bcrypt.CompareHashAndPassword([]byte(cfg.AdminTokenHash), []byte(token)) == nil {
					c.Locals(moderatorKey, AdminTokenModerator)
					return c.Next()
				}
			}
		}

		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid claims",
			})
		}

		email, _ := claims["email"].(string)
		sub, _ := claims["sub"].(string)

		if contains(adminEmails, email) || contains(adminUserIDs, sub) {
			c.Locals(moderatorKey, sub)
			return c.Next()
		}

		if sub != "" {
			userID, err := uuid.Parse(sub)
			if err == nil {
				var user models.User
				if err := db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err == nil {
					if user.Role == "admin" {
						c.Locals(moderatorKey, sub)
						return c.Next()
					}
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	if val == "" {
		return false
	}
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
