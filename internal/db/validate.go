package db

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names reported in errors are
// the bson names so they line up with what is stored.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("bson"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})

	return validate
}

func fieldErrors(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, FieldError{Key: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Path `%s` is required.", fe.Field())
	case "email":
		return fmt.Sprintf("`%v` is not a valid email address.", fe.Value())
	case "oneof":
		return fmt.Sprintf("`%v` is not a valid value for path `%s` (one of %s).", fe.Value(), fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("Path `%s` must be at least %s.", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("Path `%s` must be greater than %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Path `%s` failed the %q rule.", fe.Field(), fe.Tag())
	}
}
