// Package classify maps raw failures onto the closed ErrorKind taxonomy.
//
// Matching is an ordered rule table: first match wins, matching is
// case-insensitive substring search against the error message. Rule order
// encodes priority; timeouts are checked before the generic api_error bucket,
// division by zero and not-found before the generic validation rules.
package classify

import (
	"context"
	"errors"
	"strings"

	"github.com/cellsight/cellsight/domain"
)

// Error is a failure that already carries a classified kind. Classify takes a
// type-based shortcut for these instead of matching on text.
type Error struct {
	Kind    domain.ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a pre-classified error.
func NewError(kind domain.ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// rule maps message substrings to an ErrorKind. The table is data, not caller
// branching: extending the taxonomy means a new enum value and a new entry.
type rule struct {
	kind       domain.ErrorKind
	substrings []string
}

var rules = []rule{
	{domain.ErrorKindTimeout, []string{"timed out", "timeout", "deadline exceeded"}},
	{domain.ErrorKindDivisionByZero, []string{"division by zero", "divide by zero", "integer divide"}},
	{domain.ErrorKindNotFound, []string{"not found", "no such", "404"}},
	{domain.ErrorKindRateLimit, []string{"rate limit", "too many requests", "429"}},
	{domain.ErrorKindValidation, []string{"validation", "invalid", "too short", "bad request", "malformed"}},
	{domain.ErrorKindAPIError, []string{"api", "request failed", "connection refused", "service unavailable", "bad gateway", "internal server error", "status 5"}},
}

// Classify maps a raw failure to exactly one ErrorKind. It is total: every
// input, including nil, maps to some kind, with unknown as the default.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return domain.ErrorKindUnknown
	}

	var classified *Error
	if errors.As(err, &classified) && classified.Kind.Valid() {
		return classified.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindTimeout
	}

	return ClassifyMessage(err.Error())
}

// ClassifyMessage applies the rule table to a bare message.
func ClassifyMessage(message string) domain.ErrorKind {
	msg := strings.ToLower(message)
	for _, r := range rules {
		for _, sub := range r.substrings {
			if strings.Contains(msg, sub) {
				return r.kind
			}
		}
	}
	return domain.ErrorKindUnknown
}
