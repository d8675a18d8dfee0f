package services

import (
	"errors"
	"reflect"
	"strings"

	"storefront-service/apperrors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns validator output into a caller-facing ValidationError
// naming the first offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation("invalid request")
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return apperrors.Validation("%s is required", field)
	case "email":
		return apperrors.Validation("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return apperrors.Validation("%s must not be empty", field)
		}
		return apperrors.Validation("%s must be at least %s", field, fe.Param())
	case "max":
		return apperrors.Validation("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return apperrors.Validation("%s must be greater than %s", field, fe.Param())
	case "gte":
		return apperrors.Validation("%s must be at least %s", field, fe.Param())
	default:
		return apperrors.Validation("%s is invalid", field)
	}
}

func validEmail(email string) error {
	if err := validate.Var(email, "required,email,max=320"); err != nil {
		return apperrors.Validation("email must be a valid email address")
	}
	return nil
}
