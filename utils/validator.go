package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateInput validates a request input struct and returns problems keyed by
// field name, or nil when the input is valid.
func ValidateInput(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			fields[field] = field + " is required"
		case "min":
			fields[field] = field + " must be at least " + param
		case "max":
			fields[field] = field + " must be at most " + param
		case "gte":
			fields[field] = field + " must be at least " + param
		case "lte":
			fields[field] = field + " must be at most " + param
		case "email":
			fields[field] = field + " must be a valid email"
		case "oneof":
			fields[field] = field + " must be one of: " + param
		case "gtfield":
			fields[field] = field + " must be after " + param
		default:
			fields[field] = field + " is invalid"
		}
	}

	return fields
}

// ValidateStruct validates a struct and flattens the problems into one error.
func ValidateStruct(s interface{}) error {
	fields := ValidateInput(s)
	if fields == nil {
		return nil
	}

	var errors []string
	for _, msg := range fields {
		errors = append(errors, msg)
	}
	return fmt.Errorf(strings.Join(errors, ", "))
}
