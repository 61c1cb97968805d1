package chamber

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arloliu/go-chamber/convert"
)

var (
	// ErrCommunication indicates a timeout, framing or checksum failure that
	// persisted after the codec retry budget was exhausted.
	ErrCommunication = errors.New("communication error")

	// ErrDeviceRejected indicates the controller answered with an explicit error
	// response. It is never retried.
	ErrDeviceRejected = errors.New("device rejected request")

	// ErrDecode indicates a reply that was well framed but carried malformed data.
	ErrDecode = convert.ErrDecode
)

var (
	// ErrCapability indicates the requested loop, cascade, event, program or
	// field is not present on this profile or variant.
	ErrCapability = errors.New("capability not available")

	// ErrUnsupported indicates the operation is meaningless for the active
	// controller variant.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrValidation indicates a caller supplied value is out of range or a
	// program is malformed.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition indicates a run mode change that is not allowed from
	// the current mode.
	ErrInvalidTransition = errors.New("invalid state transition")
)

var (
	// ErrSessionNil indicates that a nil Session was supplied.
	ErrSessionNil = errors.New("session is nil")

	// ErrDriverNil indicates that a nil Driver was supplied.
	ErrDriverNil = errors.New("driver is nil")
)

// CapabilityErrorf returns an error wrapping ErrCapability.
func CapabilityErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCapability, fmt.Sprintf(format, args...))
}

// UnsupportedErrorf returns an error wrapping ErrUnsupported.
func UnsupportedErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}

// ValidationErrorf returns an error wrapping ErrValidation.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CommunicationErrorf returns an error wrapping ErrCommunication.
func CommunicationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCommunication, fmt.Sprintf(format, args...))
}

// FieldError is a failed read of a single loop field.
type FieldError struct {
	Field Field
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// FieldErrors collects the per-field failures of a partial GetLoop.
type FieldErrors []*FieldError

func (errs FieldErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}

	return "loop fields failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (errs FieldErrors) Unwrap() []error {
	out := make([]error, 0, len(errs))
	for _, e := range errs {
		out = append(out, e)
	}

	return out
}

// Get returns the error recorded for field f, or nil.
func (errs FieldErrors) Get(f Field) error {
	for _, e := range errs {
		if e.Field == f {
			return e.Err
		}
	}

	return nil
}
