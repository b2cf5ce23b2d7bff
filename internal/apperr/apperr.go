package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error across layers.
type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeBusy              Code = "BUSY"
	CodeTimeout           Code = "TIMEOUT"
	CodeRemote            Code = "REMOTE"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeDeviceUnavailable Code = "DEVICE_UNAVAILABLE"
	CodeTranscription     Code = "TRANSCRIPTION"
	CodeInternal          Code = "INTERNAL"
)

// Error is the unified error contract across layers.
type Error struct {
	Code    Code
	Op      string // operation name, ex: "ConversationSession.Submit"
	Message string // safe, user-presentable message
	Err     error  // wrapped error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a coded error.
func E(code Code, op, msg string, err error) error {
	return &Error{Code: code, Op: op, Message: msg, Err: err}
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// UserMessage extracts the safe message from a coded error, falling back to
// the raw error text for plain errors.
func UserMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
