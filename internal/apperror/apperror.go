package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kinds. Every *Error unwraps to exactly one of these so callers can branch
// with errors.Is.
var (
	ErrAuth         = errors.New("authentication failed")
	ErrLimitReached = errors.New("link limit reached")
	ErrFormat       = errors.New("unexpected response format")
	ErrNetwork      = errors.New("network error")
	ErrRequest      = errors.New("request failed")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrNoCredential = errors.New("no API key configured")
	ErrConflict     = errors.New("conflict")
)

// LimitReachedCode is the server error code for the plan link ceiling.
const LimitReachedCode = "LINK_LIMIT_REACHED"

type Error struct {
	Kind    error  // one of the Err* sentinels
	Status  int    // HTTP status from the remote service, 0 when not applicable
	Code    string // server error code, if any
	Message string // human-readable message
	Field   string // offending field for validation errors
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func Auth(status int, message string) *Error {
	if message == "" {
		message = "invalid or missing API key"
	}
	return &Error{Kind: ErrAuth, Status: status, Message: message}
}

// LimitReached is returned when the server refuses a create because the
// account hit its plan ceiling. It must not be retried.
func LimitReached(message string) *Error {
	if message == "" {
		message = "link limit reached for your plan"
	}
	return &Error{Kind: ErrLimitReached, Status: 403, Code: LimitReachedCode, Message: message}
}

func Format(status int, message string) *Error {
	return &Error{Kind: ErrFormat, Status: status, Message: message}
}

func Network(op string, cause error) *Error {
	return &Error{
		Kind:    ErrNetwork,
		Message: fmt.Sprintf("%s: network error, check your connection", op),
		cause:   cause,
	}
}

func Request(status int, code, message string) *Error {
	return &Error{Kind: ErrRequest, Status: status, Code: code, Message: message}
}

func NotFound(resource string, id int64) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

func NoCredential() *Error {
	return &Error{Kind: ErrNoCredential, Message: "please add your API key to use the remote collection"}
}

func Conflict(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

// Aggregate folds per-id failures of a bulk operation into a single error.
// The kind is shared when all failures agree, ErrRequest otherwise.
// Returns nil for an empty map.
func Aggregate(op string, failures map[int64]error) error {
	if len(failures) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var kind error
	parts := make([]string, 0, len(ids))
	causes := make([]error, 0, len(ids))
	for _, id := range ids {
		err := failures[id]
		parts = append(parts, fmt.Sprintf("%d", id))
		causes = append(causes, err)
		k := KindOf(err)
		switch {
		case kind == nil:
			kind = k
		case kind != k:
			kind = ErrRequest
		}
	}

	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s failed for %d link(s): %s", op, len(ids), strings.Join(parts, ", ")),
		cause:   errors.Join(causes...),
	}
}

// KindOf returns the sentinel kind of err, ErrRequest for foreign errors.
func KindOf(err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	for _, k := range []error{ErrAuth, ErrLimitReached, ErrFormat, ErrNetwork, ErrNotFound, ErrValidation, ErrNoCredential, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrRequest
}

// Message is the single human-readable line shown for a failed command.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Error()
	}
	return err.Error()
}

var names = map[error]string{
	ErrAuth:         "auth",
	ErrLimitReached: "limit_reached",
	ErrFormat:       "format",
	ErrNetwork:      "network",
	ErrRequest:      "request",
	ErrNotFound:     "not_found",
	ErrValidation:   "validation",
	ErrNoCredential: "no_credential",
	ErrConflict:     "conflict",
}

// Name is a stable snake_case label for the kind of err, used in API
// payloads and metric labels. Nil yields "".
func Name(err error) string {
	if err == nil {
		return ""
	}
	return names[KindOf(err)]
}
