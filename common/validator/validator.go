package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/glitzfusion/fusionx/common/errors"
)

var (
	// PhonePattern accepts an optional + followed by 10-15 digits once separators are removed.
	PhonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)

	// CodePattern matches generated booking and member codes.
	CodePattern = regexp.MustCompile(`^[A-Z0-9]{4,16}$`)

	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator with json field names and custom tags.
func Get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsValidPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("code", func(fl validator.FieldLevel) bool {
			return CodePattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Struct validates s and converts the first failure into an InvalidInput error.
func Struct(s interface{}) error {
	return StructAt("", s)
}

// StructAt is Struct with the field path prefixed, e.g. "members[2]".
func StructAt(prefix string, s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apperrors.ValidationError(err.Error())
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	if prefix != "" {
		field = prefix + "." + field
	}
	return apperrors.InvalidInput(field, describe(field, fe)).WithField("rule", fe.Tag())
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i != -1 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match layout %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// IsValidPhone validates a phone number after stripping common separators.
func IsValidPhone(phone string) bool {
	normalized := NormalizePhone(phone)
	return normalized != "" && PhonePattern.MatchString(normalized)
}

// NormalizePhone removes spaces, dashes, dots and parentheses.
func NormalizePhone(phone string) string {
	return phoneSeparators.Replace(strings.TrimSpace(phone))
}

// NormalizeCode trims and upper-cases a scanned or typed entry code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
