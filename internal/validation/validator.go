// Package validation wraps go-playground/validator so handlers get back
// domain validation errors with per-field messages instead of the
// library's error type.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/openarklib/openark-server/internal/errors"
)

// Validator validates request structs against their validate tags.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator that reports fields by their JSON names, so
// error details line up with what the client actually sent.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate checks s and returns a domain validation error carrying one
// message per failing field, or nil.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = messageFor(fe)
	}
	return domainerrors.ValidationWithDetails("validation failed", details)
}

// Messages for tags whose text doesn't depend on the tag parameter.
var plainMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"url":      "must be a valid URL",
	"uuid":     "must be a valid UUID",
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := plainMessages[fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte", "gtefield":
		return "must be greater than or equal to " + fe.Param()
	case "lte", "ltefield":
		return "must be less than or equal to " + fe.Param()
	case "gt", "gtfield":
		return "must be greater than " + fe.Param()
	case "lt", "ltfield":
		return "must be less than " + fe.Param()
	default:
		return "is invalid"
	}
}
