package server

import (
	"strconv"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCurrentUser handles GET /user
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// UpdateCurrentUser handles PUT /user. Only the fields present in the body
// are changed.
func (s *Server) UpdateCurrentUser(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var (
		in  service.UpdateProfileInput
		err error
	)
	if isFormBody(c) {
		in, err = parseProfileForm(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
	} else if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	in.UserID = userID

	user, err := s.userService.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

func parseProfileForm(c *fiber.Ctx) (service.UpdateProfileInput, error) {
	in := service.UpdateProfileInput{
		Name:            formString(c, "name"),
		Email:           formString(c, "email"),
		Password:        formString(c, "password"),
		Location:        formString(c, "location"),
		ProfilePhotoURL: formString(c, "profilePhotoUrl"),
	}
	if raw := formString(c, "isPublic"); raw != nil {
		v, err := strconv.ParseBool(*raw)
		if err != nil {
			return in, models.NewFieldValidationError([]models.FieldError{
				{Field: "isPublic", Message: "must be true or false"},
			})
		}
		in.IsPublic = &v
	}
	if formString(c, "availability") != nil {
		days := formValues(c, "availability")
		in.Availability = &days
	}

	var offered, wanted []service.SkillInput
	ok, err := formJSON(c, "skillsOffered", &offered)
	if err != nil {
		return in, err
	}
	if ok {
		in.SkillsOffered = &offered
	}
	ok, err = formJSON(c, "skillsWanted", &wanted)
	if err != nil {
		return in, err
	}
	if ok {
		in.SkillsWanted = &wanted
	}
	return in, nil
}

// GetUserProfile handles GET /user/:username. Private profiles are visible
// to their owner only.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	viewerID, _ := middleware.UserID(c)
	user, err := s.userService.GetProfile(c.UserContext(), c.Params("username"), viewerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}
