package server

import (
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Browse handles GET /browse?skill=&location=&availability=
func (s *Server) Browse(c *fiber.Ctx) error {
	users, err := s.searchService.Browse(c.UserContext(), service.BrowseInput{
		Skill:        c.Query("skill"),
		Location:     c.Query("location"),
		Availability: queryValues(c, "availability"),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}

// ListSkills handles GET /skills?q=
func (s *Server) ListSkills(c *fiber.Ctx) error {
	skills, err := s.searchService.Skills(c.UserContext(), c.Query("q"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"skills":  skills,
	})
}
