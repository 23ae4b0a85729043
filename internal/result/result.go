// Package result provides the short-circuiting Result type shared by the
// security actor and the export/import pipelines.
package result

import (
	"errors"
	"fmt"
)

// Status is the outcome of an operation
type Status int

const (
	Success Status = iota
	Failed
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "failed"
}

// Kind classifies a failure. The set is closed.
type Kind int

const (
	KindNone           Kind = iota // no failure
	KindBadInput                   // malformed or mismatched credential/input
	KindIncorrect                  // well-formed credential that does not match
	KindLocked                     // too many attempts
	KindNotInitialized             // no credentials set up yet
	KindUnavailable                // capability inaccessible
	KindOther                      // uncategorized
	KindIntegrity                  // archive corrupt or incorrectly produced
	KindCancelled                  // operation cancelled
	KindIO                         // filesystem or stream failure
)

var kindNames = map[Kind]string{
	KindNone:           "none",
	KindBadInput:       "bad input",
	KindIncorrect:      "incorrect",
	KindLocked:         "locked",
	KindNotInitialized: "not initialized",
	KindUnavailable:    "unavailable",
	KindOther:          "other",
	KindIntegrity:      "integrity failure",
	KindCancelled:      "cancelled",
	KindIO:             "i/o failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is matching against Result.Err()
var (
	ErrBadInput       = errors.New("bad input")
	ErrIncorrect      = errors.New("incorrect")
	ErrLocked         = errors.New("locked")
	ErrNotInitialized = errors.New("not initialized")
	ErrUnavailable    = errors.New("unavailable")
	ErrOther          = errors.New("other failure")
	ErrIntegrity      = errors.New("integrity failure")
	ErrCancelled      = errors.New("cancelled")
	ErrIO             = errors.New("i/o failure")
)

var kindSentinels = map[Kind]error{
	KindBadInput:       ErrBadInput,
	KindIncorrect:      ErrIncorrect,
	KindLocked:         ErrLocked,
	KindNotInitialized: ErrNotInitialized,
	KindUnavailable:    ErrUnavailable,
	KindOther:          ErrOther,
	KindIntegrity:      ErrIntegrity,
	KindCancelled:      ErrCancelled,
	KindIO:             ErrIO,
}

// Result is a tagged outcome with an optional message
type Result struct {
	Status  Status
	Kind    Kind
	Message string
}

// OK is the default success value
var OK = Result{Status: Success}

// Fail builds a failed result
func Fail(kind Kind, message string) Result {
	return Result{Status: Failed, Kind: kind, Message: message}
}

// Failf builds a failed result with a formatted message
func Failf(kind Kind, format string, args ...any) Result {
	return Fail(kind, fmt.Sprintf(format, args...))
}

// FromError maps err to a failed result of the given kind; nil maps to OK
func FromError(kind Kind, err error) Result {
	if err == nil {
		return OK
	}
	return Fail(kind, err.Error())
}

// FromBool returns OK when ok holds, a failure with message otherwise
func FromBool(ok bool, kind Kind, message string) Result {
	if ok {
		return OK
	}
	return Fail(kind, message)
}

// Succeeded reports whether the result is a success
func (r Result) Succeeded() bool {
	return r.Status == Success
}

// Pipe runs next only when r succeeded; otherwise r is returned untouched.
func (r Result) Pipe(next func() Result) Result {
	if r.Status != Success {
		return r
	}
	return next()
}

// OrElse runs fallback only when r failed
func (r Result) OrElse(fallback func(Result) Result) Result {
	if r.Status == Success {
		return r
	}
	return fallback(r)
}

// Err converts a failed result into an error, nil on success
func (r Result) Err() error {
	if r.Status == Success {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Message}
}

func (r Result) String() string {
	if r.Status == Success {
		return "success"
	}
	if r.Message == "" {
		return fmt.Sprintf("failed (%s)", r.Kind)
	}
	return fmt.Sprintf("failed (%s): %s", r.Kind, r.Message)
}

// Error is the error form of a failed Result
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches the per-kind sentinel errors
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// DataResult is a Result carrying a payload on success
type DataResult[T any] struct {
	Result
	Data T
}

// With wraps data in a successful DataResult
func With[T any](data T) DataResult[T] {
	return DataResult[T]{Result: OK, Data: data}
}

// FailData builds a failed DataResult from r
func FailData[T any](r Result) DataResult[T] {
	return DataResult[T]{Result: r}
}

// PipeData feeds the payload of r into next when r succeeded
func PipeData[T, U any](r DataResult[T], next func(T) DataResult[U]) DataResult[U] {
	if r.Status != Success {
		return DataResult[U]{Result: r.Result}
	}
	return next(r.Data)
}

// Then feeds the payload of r into a payload-less stage
func Then[T any](r DataResult[T], next func(T) Result) Result {
	if r.Status != Success {
		return r.Result
	}
	return next(r.Data)
}
