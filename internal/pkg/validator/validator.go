package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Payment status validation. An absent status is handled by omitempty on
	// the pointer; an explicit empty string is invalid.
	validate.RegisterValidation("payment_status", func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		return status == "pending" || status == "approved" || status == "rejected"
	})

	// Wallet transaction decision validation
	validate.RegisterValidation("wallet_action", func(fl validator.FieldLevel) bool {
		action := fl.Field().String()
		return action == "approve" || action == "reject"
	})

	// Wallet transaction type validation
	validate.RegisterValidation("wallet_txn_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		return t == "deposit" || t == "withdrawal"
	})

	// Export format validation
	validate.RegisterValidation("export_format", func(fl validator.FieldLevel) bool {
		f := fl.Field().String()
		return f == "csv" || f == "json" || f == ""
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "url":
			errors[field] = "Invalid URL format"
		case "payment_status":
			errors[field] = "Invalid status. Must be: pending, approved, or rejected"
		case "wallet_action":
			errors[field] = "Invalid action. Must be: approve or reject"
		case "wallet_txn_type":
			errors[field] = "Invalid type. Must be: deposit or withdrawal"
		case "export_format":
			errors[field] = "Invalid format. Must be: csv or json"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
