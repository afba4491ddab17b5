package types

import "fmt"

// ErrorCode represents a gobeat error code.
type ErrorCode string

// Error codes.
const (
	// S0xxx: Lexical/Syntax errors
	ErrUnexpectedCharacter ErrorCode = "S0101"
	ErrNumberOutOfRange    ErrorCode = "S0102"
	ErrUnexpectedEnd       ErrorCode = "S0104"
	ErrCommentNotClosed    ErrorCode = "S0106"
	ErrSyntaxError         ErrorCode = "S0201"
	ErrExpectedToken       ErrorCode = "S0202"
	ErrNestingTooDeep      ErrorCode = "S0203"
	ErrUnknownDirective    ErrorCode = "S0204"
	ErrInvalidDirective    ErrorCode = "S0205"
	ErrEmptySequencer      ErrorCode = "S0206"

	// C0xxx: Compile configuration errors
	ErrInvalidBufferSize ErrorCode = "C0101"
	ErrInvalidResolution ErrorCode = "C0102"

	// E0xxx: API misuse
	ErrNilExpression ErrorCode = "E0101"
)

// Error represents a structured gobeat error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new error. Use a negative position when the error is
// not tied to a source location.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}
