package report

import (
	"fmt"
	"strings"
)

// ErrorKind enumerates the classes of failure the transpiler can produce.
type ErrorKind int

const (
	// KindUnsupportedConstruct indicates a Python feature with no defined
	// Rust mapping.  These are function-level: the rest of the module is
	// still translated.
	KindUnsupportedConstruct ErrorKind = iota

	// KindTypeMismatch indicates an expected/found type conflict.  These are
	// diagnostic only: the type mapper itself never produces an invalid
	// program since it falls back to the unknown type.
	KindTypeMismatch

	// KindConversionError indicates the bridge could not convert a function.
	// Translation of that one function is aborted.
	KindConversionError

	// KindInternalInvariant indicates an analyzer precondition was violated.
	// These are fatal and must never be silently ignored.
	KindInternalInvariant
)

// String returns the human-readable label for an error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedConstruct:
		return "unsupported construct"
	case KindTypeMismatch:
		return "type mismatch"
	case KindConversionError:
		return "conversion error"
	case KindInternalInvariant:
		return "internal invariant violation"
	default:
		return "unknown error"
	}
}

// -----------------------------------------------------------------------------

// TranslateError is a structured translation failure.  It carries everything
// the CLI and editor-protocol layers need for display: a kind, a message, a
// source location, and zero or more suggestions.
type TranslateError struct {
	// The kind of the error.
	Kind ErrorKind

	// The error message.
	Message string

	// The span over which the error occurs.  May be nil when no position
	// information is available.
	Span *TextSpan

	// Optional suggestions for resolving the error.
	Suggestions []string
}

func (te *TranslateError) Error() string {
	if te.Span == nil {
		return fmt.Sprintf("%s: %s", te.Kind, te.Message)
	}

	return fmt.Sprintf("%s: %s: %s", te.Span, te.Kind, te.Message)
}

// WithSuggestion returns the error with an additional suggestion attached.
func (te *TranslateError) WithSuggestion(suggestion string) *TranslateError {
	te.Suggestions = append(te.Suggestions, suggestion)
	return te
}

// -----------------------------------------------------------------------------

// Raise creates a new conversion error over the given span.
func Raise(span *TextSpan, msg string, args ...interface{}) *TranslateError {
	return &TranslateError{
		Kind:    KindConversionError,
		Message: fmt.Sprintf(msg, args...),
		Span:    span,
	}
}

// RaiseUnsupported creates a new unsupported-construct error naming the
// construct that has no Rust mapping.
func RaiseUnsupported(span *TextSpan, construct string) *TranslateError {
	return &TranslateError{
		Kind:    KindUnsupportedConstruct,
		Message: fmt.Sprintf("no Rust mapping for %s", construct),
		Span:    span,
	}
}

// RaiseTypeMismatch creates a new type-mismatch diagnostic from the
// expected/found/context triple.
func RaiseTypeMismatch(span *TextSpan, expected, found, context string) *TranslateError {
	return &TranslateError{
		Kind:    KindTypeMismatch,
		Message: fmt.Sprintf("expected %s but found %s in %s", expected, found, context),
		Span:    span,
	}
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal invariant violation.  These result from a bug
// in the transpiler itself: they are not intended to ever happen and must fail
// loudly rather than let the transpiler emit plausible-looking incorrect
// output.  The raised error is not recoverable by CatchErrors.
func ReportICE(message string, args ...interface{}) {
	panic(&internalError{msg: fmt.Sprintf(message, args...)})
}

// internalError wraps an internal invariant violation so that CatchErrors can
// distinguish it from recoverable per-function errors and re-panic.
type internalError struct {
	msg string
}

func (ie *internalError) Error() string {
	return "internal invariant violation: " + ie.msg
}

// CatchErrors catches any translation errors raised by a `panic` during the
// analysis or generation of a single function and hands them to the given
// handler.  Per-function errors never abort the whole module.  Internal
// invariant violations are re-raised: those must reach the top of the process.
// NB: This function must ALWAYS be deferred.
func CatchErrors(handler func(*TranslateError)) {
	if x := recover(); x != nil {
		switch v := x.(type) {
		case *TranslateError:
			if v.Kind == KindInternalInvariant {
				panic(v)
			}

			handler(v)
		case *internalError:
			panic(v)
		case error:
			handler(&TranslateError{Kind: KindConversionError, Message: v.Error()})
		default:
			panic(x)
		}
	}
}

// -----------------------------------------------------------------------------

// ErrorList accumulates the per-function errors of one module translation.
type ErrorList struct {
	errors []*TranslateError
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *TranslateError) {
	el.errors = append(el.errors, err)
}

// Errors returns the accumulated errors in the order they were reported.
func (el *ErrorList) Errors() []*TranslateError {
	return el.errors
}

// Empty returns whether no errors have been reported.
func (el *ErrorList) Empty() bool {
	return len(el.errors) == 0
}

func (el *ErrorList) Error() string {
	msgs := make([]string, len(el.errors))
	for i, err := range el.errors {
		msgs[i] = err.Error()
	}

	return strings.Join(msgs, "\n")
}
