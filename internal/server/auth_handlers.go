package server

import (
	"errors"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /register
func (s *Server) Register(c *fiber.Ctx) error {
	in, err := parseRegisterInput(c)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
		return invalidBody(c)
	}

	if _, err := s.userService.Register(c.UserContext(), in); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
	})
}

// parseRegisterInput reads a JSON or form registration body. Form bodies
// carry the skill lists as JSON-encoded arrays and may repeat availability.
func parseRegisterInput(c *fiber.Ctx) (service.RegisterInput, error) {
	var in service.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return in, err
	}
	if !isFormBody(c) {
		return in, nil
	}
	in.Availability = formValues(c, "availability")
	if _, err := formJSON(c, "skillsOffered", &in.SkillsOffered); err != nil {
		return in, err
	}
	if _, err := formJSON(c, "skillsWanted", &in.SkillsWanted); err != nil {
		return in, err
	}
	return in, nil
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	token, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"token": token})
}

// Logout handles POST /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}
	if err := s.authService.Logout(c.UserContext(), identity); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
