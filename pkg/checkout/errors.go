package checkout

import (
	"errors"
	"fmt"
)

// Sentinel errors for session commands.
var (
	// ErrNoItems is returned when checkout is requested before anything was scanned.
	ErrNoItems error = &UserInputError{Message: "Please scan some items first!"}

	// ErrSessionActive is returned when scanning is started twice.
	ErrSessionActive = errors.New("checkout: session already active")

	// ErrStaleSession is returned when a setup result belongs to a replaced session.
	ErrStaleSession = errors.New("checkout: stale session")
)

// SetupError means the camera or classifier could not be initialized.
// The session does not start.
type SetupError struct {
	// Component is "camera" or "classifier".
	Component string
	Err       error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Component, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// InferenceError wraps a failed prediction. It only ever costs one tick.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// UserInputError is a non-fatal warning shown to the operator.
type UserInputError struct {
	Message string
}

func (e *UserInputError) Error() string {
	return e.Message
}

// IsUserInput reports whether err is a UserInputError.
func IsUserInput(err error) bool {
	var u *UserInputError
	return errors.As(err, &u)
}

// IsSetup reports whether err is a SetupError.
func IsSetup(err error) bool {
	var s *SetupError
	return errors.As(err, &s)
}
