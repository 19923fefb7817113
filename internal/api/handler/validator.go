package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator with the domain enumerations
// registered as tags: crisis_type, alert_radius, progress and skill.
func NewValidator() *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	for tag, fn := range map[string]validator.Func{
		"crisis_type": func(fl validator.FieldLevel) bool {
			return domain.CrisisType(fl.Field().String()).Valid()
		},
		"alert_radius": func(fl validator.FieldLevel) bool {
			return domain.AlertRadius(fl.Field().Int()).Valid()
		},
		"progress": func(fl validator.FieldLevel) bool {
			return domain.Progress(fl.Field().String()).Valid()
		},
		"skill": func(fl validator.FieldLevel) bool {
			return domain.Skill(fl.Field().String()).Valid()
		},
	} {
		// Registration only fails for an empty tag or nil func.
		_ = v.RegisterValidation(tag, fn)
	}
	return &echoValidator{v: v}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// Validate satisfies the echo.Validator interface. All field failures are
// reported together, separated by "; ".
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "latitude":
		return field + " must be between -90 and 90"
	case "longitude":
		return field + " must be between -180 and 180"
	case "crisis_type":
		return fmt.Sprintf("%s must be one of: %s", field, joinValues(domain.CrisisTypes))
	case "alert_radius":
		return field + " must be 500, 1000 or 2000"
	case "progress":
		return fmt.Sprintf("%s must be %s or %s", field, domain.ProgressEnRoute, domain.ProgressArrived)
	case "skill":
		return fmt.Sprintf("%s must be one of: %s", field, joinValues(domain.Skills))
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
