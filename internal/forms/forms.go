// Package forms validates and cleans what visitors and admins type before it
// is forwarded to the backend.
package forms

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/crypgo-dev/crypgo-web/internal/api"
)

const (
	phoneLength = 10
	minOTP      = 4
	maxOTP      = 6
)

// DefaultNetwork is the only deposit and withdrawal network offered
const DefaultNetwork = "TRC20"

// Validator checks forms with struct tags and strips markup from free text
type Validator struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
}

// normalizer is implemented by forms that clean their own fields before validation
type normalizer interface {
	normalize(clean func(string) string)
}

// New creates a Validator with the custom tags registered
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report json names in errors
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return len(value) == phoneLength && allDigits(value)
	})
	validate.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return len(value) >= minOTP && len(value) <= maxOTP && allDigits(value)
	})
	validate.RegisterValidation("refcode", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
				return false
			}
		}
		return true
	})

	return &Validator{
		validate: validate,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Validate normalizes form in place and checks it. Failures come back as an
// *api.Error of kind validation carrying a message fit for display.
func (v *Validator) Validate(form any) error {
	if n, ok := form.(normalizer); ok {
		n.normalize(v.Sanitize)
	}

	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := api.NewValidationError(describe(verrs[0]))
		e.Err = err
		return e
	}
	e := api.NewValidationError("Invalid input")
	e.Err = err
	return e
}

// Sanitize removes markup and surrounding whitespace from free text
func (v *Validator) Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(v.policy.Sanitize(s)))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "phone10":
		return "Enter a valid 10-digit phone number"
	case "otpcode":
		return "Enter the OTP sent to your phone"
	case "refcode":
		return "Referral code may only contain letters and digits"
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// NormalizePhone keeps the digits of s, at most ten
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == phoneLength {
				break
			}
		}
	}
	return b.String()
}

// MaskPhone hides the middle of a phone number, e.g. 98****3210
func MaskPhone(phone string) string {
	if len(phone) < 6 {
		return phone
	}
	return phone[:2] + "****" + phone[len(phone)-4:]
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
