package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/clean-blog/internal/apperror"
)

// Field limits.
const (
	MaxUsernameLength = 64
	MinPasswordLength = 8
	MaxBioLength      = 250
	MaxTitleLength    = 250
	MaxCommentLength  = 5000
	RecentPostsLimit  = 4
)

// BgColors are the selectable profile background colors (hex, no '#').
var BgColors = []string{"000000", "37306B", "862B0D", "454545"}

// DefaultBgColor is used when registration leaves the color empty.
const DefaultBgColor = "000000"

var usernamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// reservedUsernames would shadow top-level routes.
var reservedUsernames = map[string]bool{
	"api":      true,
	"auth":     true,
	"login":    true,
	"logout":   true,
	"metrics":  true,
	"register": true,
}

func validUsername(s string) bool {
	return usernamePattern.MatchString(s) && !reservedUsernames[s]
}

// validate is safe for concurrent use; building it once caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name ("img_url"), not the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})

	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return validUsername(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("bgcolor", func(fl validator.FieldLevel) bool {
		for _, c := range BgColors {
			if fl.Field().String() == c {
				return true
			}
		}
		return false
	}); err != nil {
		panic(err)
	}
	return v
}

// validateStruct runs the struct's `validate` tags and reports the first
// failure as an apperror.ValidationFailed for that field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}
	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	case "email":
		return "email address is not valid"
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "username":
		if v, _ := fe.Value().(string); reservedUsernames[v] {
			return "that username is reserved"
		}
		return "username must start with a lowercase letter and contain only lowercase letters, digits, '_' or '-'"
	case "bgcolor":
		return fmt.Sprintf("background color must be one of %s", strings.Join(BgColors, ", "))
	default:
		return fmt.Sprintf("%s is not valid", field)
	}
}

// normalizeUsername trims and lowercases; usernames are stored lowercase.
func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeBgColor(s string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}
