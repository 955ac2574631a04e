package models

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

const DATE_LAYOUT = "2006-01-02"

var (
	validate *validator.Validate

	phoneNumberRegex = regexp.MustCompile(`^\+?\d{9,15}$`)

	BloodGroups = []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}

	fieldMessages = map[string]string{
		"phone_number": "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed.",
		"blood_group":  fmt.Sprintf("Blood group must be one of %v.", strings.Join(BloodGroups, ", ")),
		"date":         "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.",
		"money":        "Ensure that there are no more than 2 decimal places.",
	}
)

func init() {
	validate = validator.New()
	fatalOnError(RegisterValidators(validate))
}

// RegisterValidators adds the field validators used by the model inputs and
// reports fields by their json name.
func RegisterValidators(validate *validator.Validate) error {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return phoneNumberRegex.MatchString(fl.Field().String())
	})
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("blood_group", func(fl validator.FieldLevel) bool {
		for _, group := range BloodGroups {
			if fl.Field().String() == group {
				return true
			}
		}
		return false
	})
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DATE_LAYOUT, fl.Field().String())
		return err == nil
	})
	if err != nil {
		return err
	}

	// money allows at most two decimal places
	err = validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		cents := fl.Field().Float() * 100
		return math.Abs(cents-math.Round(cents)) < 1e-6
	})
	if err != nil {
		return err
	}

	return nil
}

// validateStruct runs the struct tags on input and converts failures into a ValidationError.
func validateStruct(input interface{}) *ValidationError {
	verr := &ValidationError{}

	err := validate.Struct(input)
	if err == nil {
		return verr
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.Add(NON_FIELD_ERRORS, err.Error())
		return verr
	}

	for _, fieldErr := range validationErrors {
		verr.Add(fieldErr.Field(), messageFor(fieldErr))
	}

	return verr
}

func messageFor(fieldErr validator.FieldError) string {
	if message, ok := fieldMessages[fieldErr.Tag()]; ok {
		return message
	}

	switch fieldErr.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %v characters.", fieldErr.Param())
	case "min":
		if fieldErr.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %v characters.", fieldErr.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %v.", fieldErr.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %v.", fieldErr.Param())
	}

	return fmt.Sprintf("Failed on the '%v' rule.", fieldErr.Tag())
}
