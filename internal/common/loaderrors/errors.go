// Package loaderrors contains the typed errors shared by the planner, the session runner and the
// invocation entry points. Callers recover them with errors.As to decide how a failure is reported.
package loaderrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned when a run definition, payload or event fails validation.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "userIncrease"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrNotFound is returned whenever some resource, such as the credential file or the reference image,
// isn't found. Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "credentials"
	Value   string // Resource name, e.g., "localStorage.json"
	Message string
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrDispatchFailed wraps a dispatcher failure with the worker that could not be launched.
type ErrDispatchFailed struct {
	RunId    string
	Function string
	Err      error
}

func (err *ErrDispatchFailed) Error() string {
	return fmt.Sprintf("failed to dispatch worker %s to %s: %s", err.RunId, err.Function, err.Err)
}

func (err *ErrDispatchFailed) Unwrap() error {
	return err.Err
}

// IsInvalidArgument reports whether any error in the chain is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}
