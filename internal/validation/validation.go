// Package validation contains the logic for validating request data.
//
// It uses the `validator` library to enforce rules (like required
// fields or email formats) defined in struct tags and extracts
// validation errors into a format the client can understand.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/p2p-rigid/api-test/internal/errs"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance is reused across requests.
var validate = validator.New()

// Struct runs tag-based validation on v. Request types use it to
// implement Validatable.
func Struct(v any) error {
	return validate.Struct(v)
}

// Validatable is implemented by request payload types that know how to
// validate themselves.
//
// Typical pattern:
//   - define a request struct with validator tags (`validate:"required,email"`)
//   - implement Validate() error running validator.Struct on itself
//   - return validator.ValidationErrors (or CustomValidationErrors for
//     cross-field rules tags cannot express)
type Validatable interface {
	Validate() error
}

// CustomValidationError represents a single validation issue for a
// specific field, used for rules that cannot be expressed via tags.
type CustomValidationError struct {
	Field   string
	Message string
}

// CustomValidationErrors is a slice of custom validation errors that
// satisfies error.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

// BindAndValidate binds request data into payload and validates it.
//
// 1) c.Bind(payload) populates the request struct. payload must be a
// pointer so Echo can mutate it.
// 2) payload.Validate() applies validation rules.
// 3) Returns *errs.HTTPError (400) with field-level errors on failure.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		return errs.NewBadRequestError("Malformed request payload", false, nil, nil)
	}

	if msg, fieldErrors := validateStruct(payload); fieldErrors != nil {
		return errs.NewBadRequestError(msg, true, nil, fieldErrors)
	}

	return nil
}

func validateStruct(v Validatable) (string, []errs.FieldError) {
	if err := v.Validate(); err != nil {
		return ExtractValidationError(err)
	}
	return "", nil
}

// ExtractValidationError converts validator.ValidationErrors or
// CustomValidationErrors into user-friendly field errors.
func ExtractValidationError(err error) (string, []errs.FieldError) {
	var fieldErrors []errs.FieldError

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		customValidationErrors, okCustom := err.(CustomValidationErrors)
		if !okCustom {
			fieldErrors = append(fieldErrors, errs.FieldError{
				Field: "request",
				Error: err.Error(),
			})
			return "Validation failed", fieldErrors
		}
		for _, custom := range customValidationErrors {
			fieldErrors = append(fieldErrors, errs.FieldError{
				Field: custom.Field,
				Error: custom.Message,
			})
		}
		return "Validation failed", fieldErrors
	}

	for _, err := range validationErrors {
		field := strings.ToLower(err.Field())
		var msg string

		switch err.Tag() {
		case "required":
			msg = "is required"

		case "min":
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must be at least %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must be at least %s", err.Param())
			}

		case "max":
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must not exceed %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must not exceed %s", err.Param())
			}

		case "gte":
			msg = fmt.Sprintf("must be at least %s", err.Param())

		case "lte":
			msg = fmt.Sprintf("must not exceed %s", err.Param())

		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", err.Param())

		case "email":
			msg = "must be a valid email address"

		default:
			if err.Param() != "" {
				msg = fmt.Sprintf("%s: %s:%s", field, err.Tag(), err.Param())
			} else {
				msg = fmt.Sprintf("%s: %s", field, err.Tag())
			}
		}

		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: field,
			Error: msg,
		})
	}

	return "Validation failed", fieldErrors
}
