package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest decodes the JSON body into dst and runs struct validation.
// The returned error message is safe to echo back to the client.
func ValidateRequest(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("%s", formatValidationError(validationErrors))
		}
		return fmt.Errorf("invalid request")
	}

	return nil
}

// formatValidationError turns validator output into a readable message
// without leaking struct internals
func formatValidationError(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))

	for _, fieldErr := range errs {
		field := strings.ToLower(fieldErr.Field())

		switch fieldErr.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param()))
		case "len":
			messages = append(messages, fmt.Sprintf("%s must be exactly %s characters", field, fieldErr.Param()))
		case "numeric":
			messages = append(messages, fmt.Sprintf("%s must contain only digits", field))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field))
		}
	}

	return strings.Join(messages, "; ")
}
