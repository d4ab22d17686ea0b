package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

const stackDepth = 10

// Error is an error tagged with an ErrorCode. The code decides the HTTP
// status and the envelope code the validator API returns; Message is what
// the client sees.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
	Stack   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func build(code ErrorCode, msg string, cause error) *Error {
	var inner *Error
	if stderrors.As(cause, &inner) && inner.Stack != "" {
		return &Error{Code: code, Message: msg, Details: inner.Details, Err: cause, Stack: inner.Stack}
	}
	// build <- constructor <- caller
	return &Error{Code: code, Message: msg, Err: cause, Stack: callers(3)}
}

// New returns an error carrying code and its default message.
func New(code ErrorCode) *Error {
	return build(code, code.Message(), nil)
}

func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return build(code, fmt.Sprintf(format, args...), nil)
}

// Wrap tags err with code. The message of err is kept, and so is the
// stack when err already is an *Error.
func Wrap(err error, code ErrorCode) *Error {
	if err == nil {
		return nil
	}
	return build(code, err.Error(), err)
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return build(code, fmt.Sprintf(format, args...), err)
}

// WithDetail attaches a key/value rendered in the response "details" field.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetCode returns the outermost code in err's chain; untagged errors are
// InternalServerError and nil is Success.
func GetCode(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalServerError
}

// GetError returns the outermost *Error in err's chain, tagging foreign
// errors as InternalServerError.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(err, InternalServerError)
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

func BadRequest(msg string) *Error {
	return build(InvalidParams, msg, nil)
}

// ValidationError reports a rejected request field.
func ValidationError(field, reason string) *Error {
	return build(ValidationFailed, field+": "+reason, nil).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func callers(skip int) string {
	var pcs [stackDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	if n == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&b, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			return b.String()
		}
	}
}
