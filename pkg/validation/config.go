// Package validation checks the string-valued settings of a plan and of the
// command line before they reach the schedule.
package validation

import (
	"errors"
	"fmt"

	"github.com/iwvelando/mortgage-forecast/pkg/constants"
)

var (
	// ErrUnknownEventType is returned for event types other than rate and lumpSum.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrUnknownOutputFormat is returned for output formats other than pretty and csv.
	ErrUnknownOutputFormat = errors.New("unknown output format")
)

// ValidateEventType checks if an event type is one the schedule understands.
func ValidateEventType(eventType string) error {
	if eventType != constants.EventTypeRate && eventType != constants.EventTypeLumpSum {
		return fmt.Errorf("expected event type of %s or %s, got %q: %w",
			constants.EventTypeRate, constants.EventTypeLumpSum, eventType, ErrUnknownEventType)
	}
	return nil
}

// ValidateOutputFormat checks if a schedule can be rendered in format.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV:
		return nil
	}
	return fmt.Errorf("expected output format of %s or %s, got %q: %w",
		constants.OutputFormatPretty, constants.OutputFormatCSV, format, ErrUnknownOutputFormat)
}

// ValidateLogLevel checks if a log level name is supported.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s", level)
}

// ValidateLogFormat checks if a log encoder name is supported.
func ValidateLogFormat(format string) error {
	switch format {
	case "json", "console":
		return nil
	}
	return fmt.Errorf("invalid log format: %s", format)
}
