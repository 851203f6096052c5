package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Violations maps a payload field, by its JSON name, to what is wrong with it.
type Violations struct {
	Errors map[string][]error
}

func (violations Violations) MarshalJSON() ([]byte, error) {
	errors := make(map[string][]string)
	for fieldName, fieldErrors := range violations.Errors {
		errors[fieldName] = make([]string, len(fieldErrors))
		for index, fieldError := range fieldErrors {
			errors[fieldName][index] = fieldError.Error()
		}
	}

	return json.Marshal(map[string]map[string][]string{
		"errors": errors,
	})
}

func (violations Violations) IsEmpty() bool {
	return len(violations.Errors) == 0
}

// Has reports whether field has at least one violation.
func (violations Violations) Has(field string) bool {
	return len(violations.Errors[field]) > 0
}

// First returns the message of the alphabetically first field, or "".
func (violations Violations) First() string {
	if violations.IsEmpty() {
		return ""
	}

	fields := make([]string, 0, len(violations.Errors))
	for field := range violations.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return violations.Errors[fields[0]][0].Error()
}

func (violations *Violations) add(field string, err error) {
	if violations.Errors == nil {
		violations.Errors = make(map[string][]error)
	}
	violations.Errors[field] = append(violations.Errors[field], err)
}

// Validator checks payload structs against their `validate` tags.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	return &Validator{validate: validate}
}

// Struct validates payload. Anything that is not a struct is reported under
// the "payload" key.
func (v *Validator) Struct(payload any) Violations {
	var violations Violations

	err := v.validate.Struct(payload)
	if err == nil {
		return violations
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		violations.add("payload", err)
		return violations
	}

	for _, fieldError := range fieldErrors {
		violations.add(fieldError.Field(), describe(fieldError))
	}
	return violations
}

func describe(fieldError validator.FieldError) error {
	name := fieldError.Field()
	switch fieldError.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "min", "gte":
		return fmt.Errorf("%s must be at least %s", name, fieldError.Param())
	case "max", "lte":
		return fmt.Errorf("%s must be at most %s", name, fieldError.Param())
	case "alphanum":
		return fmt.Errorf("%s may only contain letters and digits", name)
	}
	return fmt.Errorf("%s failed the %s rule", name, fieldError.Tag())
}

// ParsePositiveInt accepts decimal digits only and a value above zero.
func ParsePositiveInt(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
