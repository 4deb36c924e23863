package hornetq

import (
	"errors"
	"fmt"
)

const (
	ConnectionError = iota

	DisconnectedError

	ProtocolError

	UnsupportedVersionError

	ObjectClosedError

	IllegalStateError

	TimedOutError

	RetryOperationError

	SecurityError

	InvalidFilterError

	AddressNotFoundError

	InternalError

	UnknownError
)

// Error is a failure with a stable, programmatically distinguishable code.
type Error struct {
	code    int
	message string
}

func (err *Error) Error() string {
	name := errorName(err.code)
	if err.message != "" {
		return name + ": " + err.message
	}
	return name
}

// Code returns the error code the value was created with.
func (err *Error) Code() int { return err.code }

// NewError creates a typed error for the given code and optional detail.
func NewError(errorCode int, message ...interface{}) error {
	if len(message) > 0 {
		return &Error{code: errorCode, message: fmt.Sprintf("%v", message[0])}
	}
	return &Error{code: errorCode}
}

// ErrorCode extracts the code from an error produced by NewError, unwrapping
// as needed. Errors from other sources report UnknownError.
func ErrorCode(err error) int {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.code
	}
	return UnknownError
}

func errorName(errorCode int) string {
	var name string

	switch errorCode {
	case ConnectionError:
		name = "ConnectionError"
	case DisconnectedError:
		name = "DisconnectedError"
	case ProtocolError:
		name = "ProtocolError"
	case UnsupportedVersionError:
		name = "UnsupportedVersionError"
	case ObjectClosedError:
		name = "ObjectClosedError"
	case IllegalStateError:
		name = "IllegalStateError"
	case TimedOutError:
		name = "TimedOutError"
	case RetryOperationError:
		name = "RetryOperationError"
	case SecurityError:
		name = "SecurityError"
	case InvalidFilterError:
		name = "InvalidFilterError"
	case AddressNotFoundError:
		name = "AddressNotFoundError"
	case InternalError:
		name = "InternalError"
	default:
		name = "UnknownError"
	}

	return name
}

// serverCodeToError maps an error descriptor reported by the server onto the
// local taxonomy. Unrecognized codes degrade to UnknownError so a newer server
// cannot crash an older client.
func serverCodeToError(code int32, reason string) error {
	err := UnknownError

	switch int(code) {
	case ConnectionError, DisconnectedError, ProtocolError, UnsupportedVersionError,
		ObjectClosedError, IllegalStateError, TimedOutError, RetryOperationError,
		SecurityError, InvalidFilterError, AddressNotFoundError, InternalError:
		err = int(code)
	}

	if reason != "" {
		return NewError(err, reason)
	}
	return NewError(err)
}
