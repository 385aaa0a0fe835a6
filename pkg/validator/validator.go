package validator

import (
	"errors"
	"fmt"
	"strings"

	"anoa.com/blooddonation/internal/entity"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// BloodGroups lists the accepted ABO/Rh values, in entity.BloodGroups order.
var BloodGroups = func() []string {
	out := make([]string, len(entity.BloodGroups))
	for i, g := range entity.BloodGroups {
		out[i] = string(g)
	}
	return out
}()

// IsBloodGroup reports whether s is one of BloodGroups (exact match).
func IsBloodGroup(s string) bool {
	for _, g := range BloodGroups {
		if g == s {
			return true
		}
	}
	return false
}

// RegisterCustomValidations installs the project tags on gin's validator engine.
func RegisterCustomValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return Register(v)
}

// Register installs the project tags on v.
func Register(v *validator.Validate) error {
	return v.RegisterValidation("bloodgroup", func(fl validator.FieldLevel) bool {
		return IsBloodGroup(fl.Field().String())
	})
}

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "bloodgroup":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(BloodGroups, ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Name":         "name",
		"Email":        "email",
		"Password":     "password",
		"BloodGroup":   "blood_group",
		"City":         "city",
		"Role":         "role",
		"EverDonated":  "ever_donated",
		"LastDonation": "last_donation",
		"Bio":          "bio",
		"Action":       "action",
		"Refresh":      "refresh",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
