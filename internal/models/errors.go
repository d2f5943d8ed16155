package models

import (
	"errors"
	"fmt"
)

var ErrConfiguration = errors.New("configuration error")

// ConfigurationError is returned at construction time when anchor or
// calibration invariants do not hold. It is never produced per sample.
type ConfigurationError struct {
	Field   string
	Message string
}

func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
