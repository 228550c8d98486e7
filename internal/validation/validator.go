// Package validation validates input structs with go-playground/validator and
// reports the first failing field as a domain.FieldError.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"eventticketing/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator instance.
// Field names in errors use the json tag, and the custom "username" tag applies domain.ValidUsername.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return domain.ValidUsername(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates s and returns nil or a *domain.FieldError for the
// first failing field in declaration order. A missing required field has an
// empty Reason.
func ValidateStruct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}
	fe := fieldErrs[0]
	return domain.NewFieldError(fe.Field(), reason(fe))
}

func reason(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return ""
	case "email":
		return "must be a valid email address"
	case "username":
		return fmt.Sprintf("must be %d-%d letters, digits, '.', '_' or '-'", domain.MinUsernameLen, domain.MaxUsernameLen)
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
