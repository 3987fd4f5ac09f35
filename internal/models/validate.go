package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance; it caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs tag validation and flattens the first failure into a
// readable message.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validation: %w", err)
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "max":
		return fmt.Errorf("%s exceeds maximum of %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Errorf("%s failed %s validation", field, fe.Tag())
	}
}
