// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/newsletter/internal/errors"
)

// MaxIdempotencyKeyLength bounds client supplied idempotency keys.
const MaxIdempotencyKeyLength = 50

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PasswordStrength validates password meets minimum security requirements
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// Validate checks if the password meets the configured requirements
func (p PasswordStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}

	if len(s) < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			"password must be at least "+strconv.Itoa(p.MinLength)+" characters",
		)
	}

	if p.RequireUpper && !containsRune(s, unicode.IsUpper) {
		return validation.NewError(
			"validation_password_uppercase",
			"password must contain at least one uppercase letter",
		)
	}

	if p.RequireLower && !containsRune(s, unicode.IsLower) {
		return validation.NewError(
			"validation_password_lowercase",
			"password must contain at least one lowercase letter",
		)
	}

	if p.RequireNumber && !containsRune(s, unicode.IsNumber) {
		return validation.NewError("validation_password_number", "password must contain at least one number")
	}

	if p.RequireSpecial && !containsRune(s, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }) {
		return validation.NewError(
			"validation_password_special",
			"password must contain at least one special character",
		)
	}

	return nil
}

func containsRune(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if pred(r) {
			return true
		}
	}
	return false
}

// Email validates email format using regex
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// PrintableASCII validates that every byte is in the printable ASCII range (0x20-0x7E).
var PrintableASCII = validation.NewStringRuleWithError(
	func(s string) bool {
		for i := 0; i < len(s); i++ {
			if s[i] < 0x20 || s[i] > 0x7e {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_printable_ascii", "must contain only printable ASCII characters"),
)

// IdempotencyKey is the rule set applied to client supplied idempotency keys.
var IdempotencyKey = []validation.Rule{
	validation.Required,
	validation.Length(1, MaxIdempotencyKeyLength),
	PrintableASCII,
}
