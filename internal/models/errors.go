package models

import "fmt"

// ErrorKind classifies filter errors
type ErrorKind int

const (
	ErrorUnsupported ErrorKind = iota
	ErrorInvalidField
	ErrorConfig
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorUnsupported:
		return "unsupported"
	case ErrorInvalidField:
		return "invalid field"
	case ErrorConfig:
		return "config"
	default:
		return "unknown"
	}
}

// FilterError is returned by the filter algebra, the field registry and the parser
type FilterError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Sentinels for errors.Is
var (
	ErrUnsupported  = &FilterError{Kind: ErrorUnsupported, Msg: "unsupported filter"}
	ErrInvalidField = &FilterError{Kind: ErrorInvalidField, Msg: "invalid field"}
	ErrConfig       = &FilterError{Kind: ErrorConfig, Msg: "invalid configuration"}
)

func (e *FilterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels
func (e *FilterError) Is(target error) bool {
	switch target {
	case ErrUnsupported:
		return e.Kind == ErrorUnsupported
	case ErrInvalidField:
		return e.Kind == ErrorInvalidField
	case ErrConfig:
		return e.Kind == ErrorConfig
	}
	return false
}

// Unsupportedf creates an Unsupported error
func Unsupportedf(format string, args ...any) *FilterError {
	return &FilterError{Kind: ErrorUnsupported, Msg: fmt.Sprintf(format, args...)}
}

// InvalidFieldf creates an InvalidField error
func InvalidFieldf(format string, args ...any) *FilterError {
	return &FilterError{Kind: ErrorInvalidField, Msg: fmt.Sprintf(format, args...)}
}

// ConfigErrorf creates a Config error
func ConfigErrorf(format string, args ...any) *FilterError {
	return &FilterError{Kind: ErrorConfig, Msg: fmt.Sprintf(format, args...)}
}
