// Package sdkerrors defines the semantic error types raised by the SLAM
// device SDK and the mapping from the transport's integer status codes
// to those errors.
package sdkerrors

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Semantic errors raised directly by the SDK, independent of any
// transport status code. These mirror the failure semantics in the
// component design: accessors raise NotReady for "empty stream", and
// connection-lifecycle misuse raises the matching sentinel below.
var (
	// ErrNotConnected is returned when an operation requires a live
	// transport but none exists.
	ErrNotConnected = errors.New("slamdevice: not connected")
	// ErrAlreadyConnected is returned by Connect when a transport is
	// already owned by the Session.
	ErrAlreadyConnected = errors.New("slamdevice: already connected")
	// ErrSessionNotCreated is returned when a component is used before
	// its owning Session has finished construction.
	ErrSessionNotCreated = errors.New("slamdevice: session not created")
	// ErrAlreadyInSession is returned when a map storage session is
	// started while another one is still active.
	ErrAlreadyInSession = errors.New("slamdevice: map storage session already active")
	// ErrInvalidArgument is returned for malformed caller input that the
	// SDK rejects before it reaches the transport.
	ErrInvalidArgument = errors.New("slamdevice: invalid argument")
	// ErrUnsupportedCapability is returned when an operation targets a
	// capability the connected device does not report support for.
	ErrUnsupportedCapability = errors.New("slamdevice: unsupported capability")
	// ErrTimeout is returned when a bounded wait elapses without the
	// device acknowledging the operation.
	ErrTimeout = errors.New("slamdevice: operation timed out")
	// ErrNotReady is returned by peek/accessor calls when the relevant
	// stream has not yet produced a sample. It is not a fatal error.
	ErrNotReady = errors.New("slamdevice: not ready")
)

// Code is the transport's integer status code, preserved on every
// TransportError so host applications can log the raw value.
type Code int32

// Transport status codes, mirrored from the device's wire protocol.
const (
	CodeOK              Code = 0
	CodeFailed          Code = -1
	CodeInvalidArgument Code = -2
	CodeNotSupported    Code = -3
	CodeNotImplemented  Code = -4
	CodeTimeout         Code = -5
	CodeIOError         Code = -6
	CodeNotReady        Code = -7
)

// TransportError wraps a non-success status code returned by the device
// over the wire, preserving the raw code for host-side logging.
type TransportError struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("slamdevice: transport error (code %d)", e.Code)
	}
	return fmt.Sprintf("slamdevice: transport error (code %d): %s", e.Code, e.Message)
}

// FromCode maps a raw transport status code to a typed error. A zero
// code maps to nil, matching the teacher's toError "SUCCESS -> nil"
// shape from cartofacade.
func FromCode(code int32, message string) error {
	switch Code(code) {
	case CodeOK:
		return nil
	case CodeNotReady:
		return ErrNotReady
	case CodeTimeout:
		return ErrTimeout
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodeNotSupported:
		return ErrUnsupportedCapability
	default:
		return &TransportError{Code: Code(code), Message: message}
	}
}

// IsNotReady reports whether err is (or wraps) ErrNotReady.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}

// IsTimeout reports whether err is (or wraps) ErrTimeout, or a context
// deadline from a transport-level request timeout (transport.Conn.Call
// combines its own timeout error with ctx.Err() via multierr, so a
// caller-side context.WithTimeout elapsing surfaces here too).
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
