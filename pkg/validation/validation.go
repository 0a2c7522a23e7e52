// Package validation runs struct tag rules and reports them as field errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			tag := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if tag == "-" {
				return ""
			}
			if tag != "" {
				return tag
			}
		}
		return f.Name
	})
	return v
}

// Struct validates dest and returns every failing field. The result is never nil.
func Struct(dest any) pkgerrors.FieldErrors {
	fields := pkgerrors.FieldErrors{}
	err := validate.Struct(dest)
	if err == nil {
		return fields
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		fields.Add("request", "is invalid")
		return fields
	}
	for _, fe := range errs {
		fields.Add(fe.Field(), Message(fe))
	}
	return fields
}

// Check is Struct reduced to an error.
func Check(dest any) error {
	fields := Struct(dest)
	if fields.Empty() {
		return nil
	}
	return pkgerrors.Validation(fields)
}

func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return "is invalid"
}
