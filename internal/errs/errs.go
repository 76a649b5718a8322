package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrAmbiguous    = errors.New("ambiguous")
	ErrPrecondition = errors.New("precondition failed")
	ErrGitSafety    = errors.New("git safety")
	ErrPathEscape   = errors.New("path escape")
)

// Error carries a kind and an operator-facing message.
type Error struct {
	Kind  error
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and, when present, the underlying cause.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error   { return newf(ErrValidation, format, args...) }
func NotFoundf(format string, args ...any) error     { return newf(ErrNotFound, format, args...) }
func Preconditionf(format string, args ...any) error { return newf(ErrPrecondition, format, args...) }
func GitSafetyf(format string, args ...any) error    { return newf(ErrGitSafety, format, args...) }

// PathEscapef reports a computed path leaving its parent. It is also a
// validation error.
func PathEscapef(format string, args ...any) error {
	return &Error{Kind: ErrPathEscape, Msg: fmt.Sprintf(format, args...), cause: ErrValidation}
}

// Ambiguousf reports a resolution tie. Resolution ties are surfaced as
// not-found so nothing guesses between candidates.
func Ambiguousf(format string, args ...any) error {
	return &Error{Kind: ErrAmbiguous, Msg: fmt.Sprintf(format, args...), cause: ErrNotFound}
}

// Kind returns a short label for err's kind, or "error" if it has none.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrPathEscape):
		return "path-escape"
	case errors.Is(err, ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	case errors.Is(err, ErrGitSafety):
		return "git-safety"
	default:
		return "error"
	}
}
