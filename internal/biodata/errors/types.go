package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind represents the pipeline stage an error belongs to
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDecode
	KindCrop
	KindResize
	KindCapture
	KindExport
	KindStorage
)

// Code narrows a Kind to a specific failure
type Code string

const (
	CodeNone              Code = ""
	CodeTooLarge          Code = "tooLarge"
	CodeUnsupportedFormat Code = "unsupportedFormat"
	CodeElementNotFound   Code = "elementNotFound"
	CodeTimeout           Code = "timeout"
	CodeZeroSizeOutput    Code = "zeroSizeOutput"
	CodeInProgress        Code = "inProgress"
)

// Error is a pipeline failure with its stage, optional code and cause
type Error struct {
	Kind      Kind      `json:"kind"`
	Code      Code      `json:"code,omitempty"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Sentinels for errors.Is. Matching compares Kind and Code only.
var (
	ErrTooLarge          = &Error{Kind: KindValidation, Code: CodeTooLarge}
	ErrUnsupportedFormat = &Error{Kind: KindValidation, Code: CodeUnsupportedFormat}
	ErrElementNotFound   = &Error{Kind: KindCapture, Code: CodeElementNotFound}
	ErrCaptureTimeout    = &Error{Kind: KindCapture, Code: CodeTimeout}
	ErrZeroSizeOutput    = &Error{Kind: KindCapture, Code: CodeZeroSizeOutput}
	ErrCaptureInProgress = &Error{Kind: KindCapture, Code: CodeInProgress}
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindDecode:
		return "DECODE"
	case KindCrop:
		return "CROP"
	case KindResize:
		return "RESIZE"
	case KindCapture:
		return "CAPTURE"
	case KindExport:
		return "EXPORT"
	case KindStorage:
		return "STORAGE"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether the user can retry after this kind of failure
// without restarting the session
func (k Kind) IsRecoverable() bool {
	switch k {
	case KindValidation, KindDecode, KindCrop, KindResize, KindExport, KindStorage:
		return true
	default:
		return false
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Code != CodeNone {
		prefix += ":" + string(e.Code)
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = defaultMessage(e.Kind, e.Code)
	}
	return fmt.Sprintf("[%s] %s", prefix, msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Kind and Code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Timestamp: time.Now()}
}

// NewWithCode creates an Error with a specific code
func NewWithCode(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Timestamp: time.Now()}
}

// Wrap wraps err as an Error of the given kind
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err, Timestamp: time.Now()}
}

// KindOf returns the Kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the Code of the first *Error in err's chain
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}

func defaultMessage(kind Kind, code Code) string {
	switch code {
	case CodeTooLarge:
		return "file is too large"
	case CodeUnsupportedFormat:
		return "unsupported file format"
	case CodeElementNotFound:
		return "capture target not found"
	case CodeTimeout:
		return "operation timed out"
	case CodeZeroSizeOutput:
		return "captured output has zero size"
	case CodeInProgress:
		return "export already in progress"
	}
	return fmt.Sprintf("%s failed", kind.String())
}
