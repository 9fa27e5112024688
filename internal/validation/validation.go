// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"skillswap/internal/models"
)

var (
	alnumRegex   = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	specialRegex = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	// Check maximum length (bcrypt ignores bytes past 72)
	if len(password) > 72 {
		return fmt.Errorf("password must not exceed 72 characters")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character")
	}

	return nil
}

// ValidateLoginPassword only checks length bounds; strength is enforced when
// the password is set.
func ValidateLoginPassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if len(password) > 72 {
		return fmt.Errorf("password must not exceed 72 characters")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}

	if len(username) > 20 {
		return fmt.Errorf("username must not exceed 20 characters")
	}

	if !alnumRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters and numbers")
	}

	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidateName checks the display name. With strict set, spaces and
// punctuation are rejected as well.
func ValidateName(name string, strict bool) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 2 {
		return fmt.Errorf("name must be at least 2 characters long")
	}
	if n > 40 {
		return fmt.Errorf("name must not exceed 40 characters")
	}
	if strict && !alnumRegex.MatchString(name) {
		return fmt.Errorf("name can only contain letters and numbers")
	}
	return nil
}

// ValidateSkill checks a single skill entry.
func ValidateSkill(name, category, level string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return fmt.Errorf("skill name is required")
	}
	if n > 50 {
		return fmt.Errorf("skill name must not exceed 50 characters")
	}
	if utf8.RuneCountInString(category) > 50 {
		return fmt.Errorf("skill category must not exceed 50 characters")
	}
	if utf8.RuneCountInString(level) > 50 {
		return fmt.Errorf("skill level must not exceed 50 characters")
	}
	return nil
}

// ValidateAvailability parses and deduplicates weekday names, keeping the
// caller's order.
func ValidateAvailability(days []string) ([]models.Weekday, error) {
	out := make([]models.Weekday, 0, len(days))
	seen := make(map[models.Weekday]struct{}, len(days))
	for _, d := range days {
		w, ok := models.ParseWeekday(d)
		if !ok {
			return nil, fmt.Errorf("invalid availability day %q", d)
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out, nil
}

// Errors accumulates field errors in the order they are found.
type Errors struct {
	fields []models.FieldError
}

// Check records err against field when it is non-nil.
func (e *Errors) Check(field string, err error) {
	if err != nil {
		e.Add(field, err.Error())
	}
}

// Add records a message against field.
func (e *Errors) Add(field, message string) {
	if len(message) > 0 {
		message = strings.ToUpper(message[:1]) + message[1:]
	}
	e.fields = append(e.fields, models.FieldError{Field: field, Message: message})
}

// Err returns a validation AppError, or nil when nothing was recorded.
func (e *Errors) Err() error {
	if len(e.fields) == 0 {
		return nil
	}
	return models.NewFieldValidationError(e.fields)
}
