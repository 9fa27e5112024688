package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DatabaseRequired rejects requests with 503 when the database does not
// answer a ping.
func DatabaseRequired(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := pingDatabase(c.UserContext(), db); err != nil {
			Logger.WarnContext(c.UserContext(), "database unavailable", slog.String("error", err.Error()))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Database not connected",
			})
		}
		return c.Next()
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
