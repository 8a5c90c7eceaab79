package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator cria uma nova instância do validador
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate realiza validações estruturais (tags) e semânticas (lógica)
func (cv *ConfigValidator) Validate(cfg *FileConfig) error {
	if err := cv.validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("config: structural validation failed:\n- %s", strings.Join(msgs, "\n- "))
		}
		return fmt.Errorf("config: structural validation failed: %w", err)
	}

	if err := cv.validateSemantics(cfg); err != nil {
		return fmt.Errorf("config: semantic validation failed: %w", err)
	}
	return nil
}

func (cv *ConfigValidator) validateSemantics(cfg *FileConfig) error {
	if err := cfg.Parse.Validate(); err != nil {
		return err
	}

	switch cfg.Session.Backend {
	case "redis":
		if cfg.Session.Redis.Addr == "" {
			return errors.New("session backend 'redis' needs redis.addr")
		}
	case "dynamodb":
		if cfg.Session.DynamoDB.Table == "" {
			return errors.New("session backend 'dynamodb' needs dynamodb.table")
		}
	}

	switch cfg.Bridge.Mode {
	case "sqs":
		if cfg.Bridge.Function == "" {
			return errors.New("bridge mode 'sqs' needs a function name")
		}
	case "poll":
		if cfg.Bridge.Function == "" || cfg.Bridge.QueueURL == "" {
			return errors.New("bridge mode 'poll' needs a function name and queue_url")
		}
	}
	if cfg.Bridge.Job && cfg.Parse.MasterKey == "" {
		return errors.New("bridge jobs need the master key")
	}
	return nil
}
