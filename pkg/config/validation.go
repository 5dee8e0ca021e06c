package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
			level := fl.Field().String()
			if level == "" {
				return true
			}
			_, err := zerolog.ParseLevel(strings.ToLower(level))
			return err == nil
		})

		validateInst = v
	})
	return validateInst
}

// ValidationError lists every invalid field.
type ValidationError struct {
	Fields []FieldError
}

// FieldError is one invalid field.
type FieldError struct {
	Field string
	Rule  string
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s fails %q (got %v)", f.Field, f.Rule, f.Value))
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate normalizes cfg and checks it.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("invalid config: nil")
	}
	cfg.Normalize()

	err := validatorInstance().Struct(cfg)
	if err == nil {
		if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
			return &ValidationError{Fields: []FieldError{{Field: "Redis.Addr", Rule: "required_with_redis", Value: ""}}}
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out.Fields = append(out.Fields, FieldError{
			Field: field,
			Rule:  fe.Tag(),
			Value: fe.Value(),
		})
	}
	return out
}
