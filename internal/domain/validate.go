package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates struct tags and reports the first failure wrapped in ErrValidation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	case "oneof":
		return fmt.Errorf("%w: %s must be one of [%s]", ErrValidation, field, fe.Param())
	case "gt", "gte":
		return fmt.Errorf("%w: %s must be %s %s", ErrValidation, field, fe.Tag(), fe.Param())
	case "email":
		return fmt.Errorf("%w: %s must be a valid email address", ErrValidation, field)
	}
	return fmt.Errorf("%w: %s failed %q", ErrValidation, field, fe.Tag())
}
