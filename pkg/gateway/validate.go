package gateway

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a normalized Request. Failures are malformed-request
// errors listing each offending field.
func Validate(req *Request) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return malformed("validate", fmt.Errorf("%w: %v", ErrMalformedRequest, err))
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, formatFieldError(fe))
	}
	return malformed("validate", fmt.Errorf("%w: %s", ErrMalformedRequest, strings.Join(messages, "; ")))
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "uppercase":
		return fmt.Sprintf("%s must be uppercase, got %q", fe.Field(), fe.Value())
	case "startswith":
		return fmt.Sprintf("%s must start with %q, got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
