package validation

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/kbukum/mizzle/errors"
	"github.com/kbukum/mizzle/middleware"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use json tag names for field names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate validates a struct using struct tags such as
// `validate:"required,email,max=255"`. It returns a *errors.ValidationError
// listing every failed field.
func Validate(s any) error {
	fields, err := structErrors(s)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return apperrors.NewValidationError(messages(fields))
}

func structErrors(s any) ([]FieldError, error) {
	err := getValidator().Struct(s)
	if err == nil {
		return nil, nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, err
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, FieldError{
			Field:   e.Field(),
			Message: formatValidationError(e),
		})
	}
	return fields, nil
}

// PipelineOption configures ForPipeline.
type PipelineOption func(*pipelineValidator)

// WithMapRules validates map payloads: each key present in the payload is
// checked against its rule (validator tag syntax, e.g. "required,email").
// Keys absent from the payload are only checked on create.
func WithMapRules(rules map[string]string) PipelineOption {
	return func(p *pipelineValidator) {
		for k, v := range rules {
			p.mapRules[k] = v
		}
	}
}

type pipelineValidator struct {
	mapRules map[string]string
}

// ForPipeline returns a validator for middleware.Validation. Struct (or
// pointer to struct) payloads are checked against their tags. Map payloads
// are checked against the WithMapRules rules. Anything else is accepted.
func ForPipeline(opts ...PipelineOption) middleware.Validator {
	p := &pipelineValidator{mapRules: make(map[string]string)}
	for _, opt := range opts {
		opt(p)
	}
	return p.validate
}

func (p *pipelineValidator) validate(_ context.Context, data any, op middleware.Operation) (middleware.ValidationResult, error) {
	if m, ok := data.(map[string]any); ok {
		return p.validateMap(m, op), nil
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return middleware.ValidationResult{Valid: true}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return middleware.ValidationResult{Valid: true}, nil
	}

	fields, err := structErrors(data)
	if err != nil {
		return middleware.ValidationResult{}, err
	}
	return middleware.ValidationResult{Valid: len(fields) == 0, Errors: messages(fields)}, nil
}

func (p *pipelineValidator) validateMap(data map[string]any, op middleware.Operation) middleware.ValidationResult {
	if len(p.mapRules) == 0 {
		return middleware.ValidationResult{Valid: true}
	}

	rules := make(map[string]interface{}, len(p.mapRules))
	for key, rule := range p.mapRules {
		if _, present := data[key]; present || op == middleware.OpCreate {
			rules[key] = rule
		}
	}

	failed := getValidator().ValidateMap(data, rules)
	if len(failed) == 0 {
		return middleware.ValidationResult{Valid: true}
	}

	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []FieldError
	for _, key := range keys {
		message := "is invalid"
		var verrs validator.ValidationErrors
		if err, ok := failed[key].(error); ok && errors.As(err, &verrs) && len(verrs) > 0 {
			message = formatValidationError(verrs[0])
		}
		fields = append(fields, FieldError{Field: key, Message: message})
	}
	return middleware.ValidationResult{Valid: false, Errors: messages(fields)}
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // lowercase
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
