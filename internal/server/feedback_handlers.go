package server

import (
	"skillswap/internal/middleware"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitFeedback handles POST /feedback
func (s *Server) SubmitFeedback(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var in service.FeedbackInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	feedback, err := s.feedbackService.Submit(c.UserContext(), userID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"feedback": feedback,
	})
}

// ListFeedback handles GET /feedback
func (s *Server) ListFeedback(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	feedback, err := s.feedbackService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"feedback": feedback,
	})
}
