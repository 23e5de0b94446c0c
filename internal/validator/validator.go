// Package validator wraps go-playground/validator with the report-specific
// tags used on request DTOs.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/citizenwatch/roadwatch-server/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterValidation("issue_type", func(fl validator.FieldLevel) bool {
		return models.IssueType(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("report_status", func(fl validator.FieldLevel) bool {
		return models.Status(fl.Field().String()).Valid()
	})
}

// Struct validates s and returns field name -> message for every failed
// rule, or nil when s is valid.
func Struct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "issue_type":
		names := make([]string, 0, len(models.IssueTypes))
		for _, t := range models.IssueTypes {
			names = append(names, string(t))
		}
		return "must be one of: " + strings.Join(names, ", ")
	case "report_status":
		names := make([]string, 0, len(models.Statuses))
		for _, s := range models.Statuses {
			names = append(names, string(s))
		}
		return "must be one of: " + strings.Join(names, ", ")
	default:
		return "is invalid"
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
