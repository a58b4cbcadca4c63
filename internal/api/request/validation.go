package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Subdomain labels: lowercase alphanumerics and hyphens, 3 to 30 characters,
// no leading or trailing hyphen.
var subdomainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,28}[a-z0-9])$`)

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func init() {
	validate.RegisterValidation("subdomain", func(fl validator.FieldLevel) bool {
		return subdomainRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		return hexColorRegex.MatchString(fl.Field().String())
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// ValidStruct validates an already-decoded value, for callers that decode a
// wrapper and validate elements one by one.
func ValidStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}
