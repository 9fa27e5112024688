package server

import (
	"skillswap/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// ListNotifications handles GET /notifications, newest first.
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	feed, err := s.notificationService.List(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"notifications": feed,
	})
}

// MarkNotificationRead handles POST /notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	if err := s.notificationService.MarkRead(c.UserContext(), userID, c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// MarkAllNotificationsRead handles POST /notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	if err := s.notificationService.MarkAllRead(c.UserContext(), userID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
