package mei

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid score configuration")
	ErrProtocol      = errors.New("measure protocol violation")
)

// ConfigurationError is returned by New for an unusable ScoreConfig.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ProtocolError is returned when a call does not fit the measure state machine.
type ProtocolError struct {
	Op     string
	State  State
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v: %s in state %s: %s", ErrProtocol, e.Op, e.State, e.Reason)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func configErr(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}
