package content

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors that are not *Error.
	KindUnknown Kind = iota
	// KindInvalidContent marks malformed input. Never retried.
	KindInvalidContent
	// KindPipeline marks a failure inside the build machinery itself.
	KindPipeline
	// KindArgument marks a caller contract violation.
	KindArgument
)

func (k Kind) String() string {
	switch k {
	case KindInvalidContent:
		return "invalid content"
	case KindPipeline:
		return "pipeline"
	case KindArgument:
		return "argument"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by pipeline operations.
type Error struct {
	Kind     Kind
	Identity Identity
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Kind == KindInvalidContent && !e.Identity.IsZero() {
		return fmt.Sprintf("%s: %s", e.Identity, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidContentf reports malformed input found in the content identified by id.
func InvalidContentf(id Identity, format string, args ...any) error {
	return &Error{Kind: KindInvalidContent, Identity: id, Msg: fmt.Sprintf(format, args...)}
}

// WrapInvalidContent reports err as an invalid-content failure of id. A
// *Error of kind KindInvalidContent is returned unchanged.
func WrapInvalidContent(id Identity, err error, format string, args ...any) error {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == KindInvalidContent {
		return err
	}
	return &Error{Kind: KindInvalidContent, Identity: id, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Pipelinef reports a build-machinery failure.
func Pipelinef(format string, args ...any) error {
	return &Error{Kind: KindPipeline, Msg: fmt.Sprintf(format, args...)}
}

// WrapPipeline reports err as a build-machinery failure.
func WrapPipeline(err error, format string, args ...any) error {
	return &Error{Kind: KindPipeline, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Argumentf reports a rejected caller argument.
func Argumentf(format string, args ...any) error {
	return &Error{Kind: KindArgument, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IdentityOf returns the identity attached to the first *Error in err's chain.
func IdentityOf(err error) (Identity, bool) {
	var ce *Error
	if errors.As(err, &ce) && !ce.Identity.IsZero() {
		return ce.Identity, true
	}
	return Identity{}, false
}
