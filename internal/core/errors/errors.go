package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeUnexpectedToken ErrorCode = "UNEXPECTED_TOKEN"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeInvalidParent   ErrorCode = "INVALID_PARENT"
	CodeLogicalError    ErrorCode = "LOGICAL_ERROR"
	CodeAlreadyExists   ErrorCode = "ALREADY_EXISTS"
	CodeDoesNotExist    ErrorCode = "DOES_NOT_EXIST"
	CodeNotAccessible   ErrorCode = "NOT_ACCESSIBLE"
	CodeUnsupported     ErrorCode = "UNSUPPORTED"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

var (
	// ErrAlreadyImported marks a trait method imported twice under one name.
	ErrAlreadyImported = errors.New("trait method already imported")
	// ErrNotYetKnown marks a lazy value that depends on a symbol that has
	// not been registered yet. Asking again later may succeed.
	ErrNotYetKnown = errors.New("not yet known")
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const CtxPath = "path"

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) ErrorCode() ErrorCode {
	return e.Code
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ParseError is raised while turning one file's tokens into elements.
type ParseError struct {
	DomainError
	Element  string
	File     string
	Position int
	Line     int
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Element != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Element, e.Message)
	}
	if e.File != "" {
		msg = fmt.Sprintf("%s (%s:%d, token %d)", msg, e.File, e.Line, e.Position)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// RuntimeError is raised by a query against already parsed elements.
type RuntimeError struct {
	DomainError
	Element string
}

func (e *RuntimeError) Error() string {
	if e.Element == "" {
		return e.DomainError.Error()
	}
	msg := fmt.Sprintf("[%s] %s: %s", e.Code, e.Element, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func NewParse(code ErrorCode, element, msg string) *ParseError {
	return &ParseError{DomainError: DomainError{Code: code, Message: msg}, Element: element}
}

func NewRuntime(code ErrorCode, element, msg string) *RuntimeError {
	return &RuntimeError{DomainError: DomainError{Code: code, Message: msg}, Element: element}
}

// At records where in the token stream the error was raised.
func (e *ParseError) At(file string, position, line int) *ParseError {
	e.File = file
	e.Position = position
	e.Line = line
	return e
}

func (e *ParseError) Wrapping(err error) *ParseError {
	e.Err = err
	return e
}

func (e *RuntimeError) Wrapping(err error) *RuntimeError {
	e.Err = err
	return e
}

// AddContext attaches key to the first domain error in err's chain, parse
// and runtime errors included. Any other error is wrapped as INTERNAL_ERROR.
func AddContext(err error, key string, value interface{}) error {
	var c contextual
	if errors.As(err, &c) {
		c.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

type contextual interface {
	WithContext(key string, value interface{}) *DomainError
}

type coded interface {
	ErrorCode() ErrorCode
}

// CodeOf returns the code of the first coded error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode(), true
	}
	return "", false
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func IsRuntime(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}
