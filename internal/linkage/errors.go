package linkage

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/reclink-cli/internal/table"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("configuration error")
	// ErrData matches every *DataError via errors.Is.
	ErrData = errors.New("data error")
)

// ConfigurationError rejects a call before any row is processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DataError reports a value that cannot take part in a required computation.
type DataError struct {
	Column string
	Row    int
	Value  table.Value
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: column %q row %d (%q): %s", e.Column, e.Row, e.Value.Key(), e.Reason)
}

func (e *DataError) Is(target error) bool { return target == ErrData }

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
