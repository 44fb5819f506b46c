package sim

import (
	"errors"
	"fmt"
)

// ProblemKind classifies what is wrong with a configuration field.
type ProblemKind string

const (
	ProblemOutOfRange ProblemKind = "out_of_range" // Number outside its allowed range
	ProblemDomain     ProblemKind = "domain"       // Malformed trait domain or distribution
	ProblemUnknown    ProblemKind = "unknown"      // Name that matches nothing
	ProblemInvalid    ProblemKind = "invalid"      // Unparseable or inconsistent value
	ProblemMissing    ProblemKind = "missing"      // Required value absent
)

// ConfigurationError describes one invalid configuration value.
// It only says what is wrong; presenting advice is up to the caller.
type ConfigurationError struct {
	Field      string
	Kind       ProblemKind
	Message    string
	Suggestion string // Closest valid name, for ProblemUnknown
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Field, e.Message)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func configErr(field string, kind ProblemKind, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Problems flattens err into its configuration errors, in report order.
func Problems(err error) []*ConfigurationError {
	var out []*ConfigurationError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ce, ok := e.(*ConfigurationError); ok {
			out = append(out, ce)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// ErrLineageDisabled is returned by ancestry lookups when the ledger is off.
var ErrLineageDisabled = errors.New("lineage ledger disabled")

// StateError reports an operation the run's state does not allow.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("sim: cannot %s a run in state %s", e.Op, e.State)
}
