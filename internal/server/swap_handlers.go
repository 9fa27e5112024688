package server

import (
	"skillswap/internal/middleware"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateSwap handles POST /swaps
func (s *Server) CreateSwap(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var in service.CreateSwapInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	swap, err := s.swapService.Create(c.UserContext(), userID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"swapRequest": swap,
	})
}

// ListSwaps handles GET /swaps
func (s *Server) ListSwaps(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	swaps, err := s.swapService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"swapRequests": swaps,
	})
}

// UpdateSwapStatus handles PATCH /swaps/:id/status
func (s *Server) UpdateSwapStatus(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	swap, err := s.swapService.SetStatus(c.UserContext(), swapID, userID, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"swapRequest": swap,
	})
}

// DeleteSwap handles DELETE /swaps/:id
func (s *Server) DeleteSwap(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	swapID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.swapService.Delete(c.UserContext(), swapID, userID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Swap request deleted",
	})
}
