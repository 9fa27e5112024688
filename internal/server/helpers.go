package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"skillswap/internal/middleware"
	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "swapId" -> "swap ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// fail writes err with the status its code maps to. Server-side failures are
// logged with their cause, which never reaches the client.
func fail(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

func contentType(c *fiber.Ctx) string {
	return strings.ToLower(string(c.Request().Header.ContentType()))
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(contentType(c), fiber.MIMEMultipartForm)
}

func isFormBody(c *fiber.Ctx) bool {
	return strings.HasPrefix(contentType(c), fiber.MIMEApplicationForm) || isMultipart(c)
}

// formJSON decodes a JSON-encoded form field into out. A missing field leaves
// out untouched and reports false.
func formJSON(c *fiber.Ctx, key string, out any) (bool, error) {
	raw := strings.TrimSpace(c.FormValue(key))
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return true, &models.AppError{
			Code:    models.CodeValidation,
			Message: key + " must be a JSON array",
			Fields:  []models.FieldError{{Field: key, Message: "must be a JSON array"}},
		}
	}
	return true, nil
}

// formValues returns every value of a repeated form field, also splitting
// comma-separated entries.
func formValues(c *fiber.Ctx, key string) []string {
	var raw [][]byte
	if isMultipart(c) {
		if form, err := c.MultipartForm(); err == nil {
			for _, v := range form.Value[key] {
				raw = append(raw, []byte(v))
			}
		}
	} else {
		raw = c.Request().PostArgs().PeekMulti(key)
	}
	return splitValues(raw)
}

// queryValues is formValues for the query string.
func queryValues(c *fiber.Ctx, key string) []string {
	return splitValues(c.Context().QueryArgs().PeekMulti(key))
}

func splitValues(raw [][]byte) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(string(v), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// formString returns a pointer to the form field's value, or nil when the
// field was not sent.
func formString(c *fiber.Ctx, key string) *string {
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil
		}
		if v, ok := form.Value[key]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}
	if !c.Request().PostArgs().Has(key) {
		return nil
	}
	v := string(c.Request().PostArgs().Peek(key))
	return &v
}
