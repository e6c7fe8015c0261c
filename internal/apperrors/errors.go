// Package apperrors defines the error kinds from spec §7 as typed,
// errors.As-compatible wrappers so the HTTP layer can map them to status
// codes without string matching.
package apperrors

import "fmt"

// Kind is one of the five error kinds spec §7 names.
type Kind string

const (
	KindInvalidQuery  Kind = "invalid_query"
	KindNotFound      Kind = "not_found"
	KindUnsupported   Kind = "unsupported"
	KindBackendError  Kind = "backend_error"
	KindConfigError   Kind = "config_error"
)

// Error wraps an underlying cause with a Kind so callers can branch on it
// via errors.As without parsing message text.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// InvalidQuery reports a spec §3 invariant violation or an unsupported
// granularity caught before SQL generation. Unknown filter operators and
// time-range tokens are not reported this way: the translator logs and
// omits them.
func InvalidQuery(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidQuery, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing connection or table.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unsupported reports an unknown connection type.
func Unsupported(format string, args ...any) *Error {
	return &Error{Kind: KindUnsupported, Message: fmt.Sprintf(format, args...)}
}

// BackendError wraps a driver-originated failure (connect/execute/metadata).
func BackendError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindBackendError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ConfigError reports a config file parse or env-substitution problem.
func ConfigError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConfigError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is allows errors.Is(err, apperrors.ErrNotFound) style checks: it reports
// whether target is an *Error of the same Kind, whatever either message is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel instances usable with errors.Is(err, apperrors.ErrNotFound).
var (
	ErrInvalidQuery = &Error{Kind: KindInvalidQuery}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnsupported  = &Error{Kind: KindUnsupported}
	ErrBackendError = &Error{Kind: KindBackendError}
	ErrConfigError  = &Error{Kind: KindConfigError}
)
