package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and custom cross-field
// rules. Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return c.validateTimingOrder()
}

// validateTimingOrder enforces the relationships between the lifecycle
// timings that struct tags cannot express.
func (c *Config) validateTimingOrder() error {
	if c.Session.ActivityThrottle >= c.Session.InactivityTimeout {
		return fmt.Errorf("session: activity_throttle (%s) must be shorter than inactivity_timeout (%s)",
			c.Session.ActivityThrottle, c.Session.InactivityTimeout)
	}
	if c.Session.InactivityTimeout > c.Session.MaxLifetime {
		return fmt.Errorf("session: inactivity_timeout (%s) must not exceed max_lifetime (%s)",
			c.Session.InactivityTimeout, c.Session.MaxLifetime)
	}
	if c.Watcher.WarningThreshold >= c.Session.MaxLifetime {
		return fmt.Errorf("watcher: warning_threshold (%s) must be shorter than session max_lifetime (%s)",
			c.Watcher.WarningThreshold, c.Session.MaxLifetime)
	}
	if c.Watcher.ActivityDebounce >= c.Session.InactivityTimeout {
		return fmt.Errorf("watcher: activity_debounce (%s) must be shorter than session inactivity_timeout (%s)",
			c.Watcher.ActivityDebounce, c.Session.InactivityTimeout)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
