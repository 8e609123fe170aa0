package optimization

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies an optimization error.
type Kind int

const (
	// KindUnknown is the zero value and never matches a sentinel.
	KindUnknown Kind = iota
	// KindConfig marks a malformed descriptor, parameter space, problem or dataset.
	// Raised at construction time and never retried.
	KindConfig
	// KindResolution marks a coordinate that does not fit its parameter space.
	KindResolution
	// KindEvaluation marks a failure of the objective evaluator.
	KindEvaluation
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindResolution:
		return "resolution"
	case KindEvaluation:
		return "evaluation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They carry only a Kind.
var (
	ErrConfig     = &Error{Kind: KindConfig}
	ErrResolution = &Error{Kind: KindResolution}
	ErrEvaluation = &Error{Kind: KindEvaluation}
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind is the error class.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	msg := e.Message
	if msg == "" {
		msg = e.Kind.String() + " error"
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a sentinel of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Message != "" || t.Op != "" || t.Component != "" || t.Err != nil {
		return e == t
	}
	return t.Kind != KindUnknown && t.Kind == e.Kind
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates an unclassified error with a formatted message.
func NewError(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err without classifying it. Returns nil if err is nil.
func Wrap(err error, format string, args ...interface{}) *Error {
	return wrap(KindUnknown, err, format, args...)
}

// NewConfigError creates a configuration error with a formatted message.
func NewConfigError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// NewResolutionError creates a resolution error with a formatted message.
func NewResolutionError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindResolution, Message: fmt.Sprintf(format, args...)}
}

// WrapConfigError wraps err as a configuration error. Returns nil if err is nil.
func WrapConfigError(err error, format string, args ...interface{}) *Error {
	return wrap(KindConfig, err, format, args...)
}

// WrapResolutionError wraps err as a resolution error. Returns nil if err is nil.
func WrapResolutionError(err error, format string, args ...interface{}) *Error {
	return wrap(KindResolution, err, format, args...)
}

// WrapEvaluationError wraps an evaluator failure. The cause keeps its stack
// trace so it can be printed with %+v. Returns nil if err is nil.
func WrapEvaluationError(err error, format string, args ...interface{}) *Error {
	return wrap(KindEvaluation, err, format, args...)
}

func wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     errors.WithStackDepth(err, 2),
	}
}

// IsOptimizationError checks if err, or any error in its chain, is an Error.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first Error in err's chain.
func KindOf(err error) Kind {
	if e, ok := IsOptimizationError(err); ok {
		return e.Kind
	}
	return KindUnknown
}
