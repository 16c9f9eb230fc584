// Package errors defines WebPeel's closed error taxonomy.
//
// Every failure a fetch operation can surface is one of four kinds:
// WebPeelError (client-side validation, fatal), NetworkError (transport
// failure), TimeoutError (a deadline elapsed) or BlockedError (the
// target refused or challenged the request). The strategy escalator in
// internal/fetch inspects these kinds to decide whether to advance to
// the next rung or surface the failure to the caller.
package errors

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies which branch of the taxonomy an error belongs to.
type Kind string

const (
	KindWebPeel Kind = "WEBPEEL"
	KindNetwork Kind = "NETWORK"
	KindTimeout Kind = "TIMEOUT"
	KindBlocked Kind = "BLOCKED"
)

// Code is the user-visible short code echoed in Detail.Type.
type Code string

const (
	CodeTimeout      Code = "TIMEOUT"
	CodeBlocked      Code = "BLOCKED"
	CodeNetwork      Code = "NETWORK"
	CodeInvalidURL   Code = "INVALID_URL"
	CodeSSRFBlocked  Code = "SSRF_BLOCKED"
	CodeInternal     Code = "INTERNAL"
	CodeInvalidInput Code = "INVALID_INPUT"
)

// Error is the concrete error type carried through the pipeline. Kind
// drives escalation behavior; Code and Message drive the user-visible
// Detail.
type Error struct {
	Kind      Kind
	Code      Code
	Message   string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Detail is the sanitized, user-visible failure shape from spec.md §7.
type Detail struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Docs      string `json:"docs,omitempty"`
	RequestID string `json:"requestId"`
}

// ToDetail projects e into the sanitized, user-visible shape. Messages
// never carry raw HTML markup, so angle brackets and quotes are
// stripped defensively even though callers should not be passing them.
func (e *Error) ToDetail() Detail {
	msg := sanitize(e.Message)
	d := Detail{Type: string(e.Code), Message: msg, RequestID: e.RequestID}
	switch e.Code {
	case CodeSSRFBlocked:
		d.Hint = "the target address resolves to a disallowed network range"
	case CodeBlocked:
		d.Hint = "the target likely served a bot challenge or denied the request"
	case CodeTimeout:
		d.Hint = "increase the timeout option or retry"
	}
	return d
}

var sanitizeReplacer = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")

func sanitize(s string) string { return sanitizeReplacer.Replace(s) }

func newID() string { return uuid.NewString() }

// New builds an Error, generating a RequestID if one isn't supplied.
func New(kind Kind, code Code, requestID, message string, err error) *Error {
	if requestID == "" {
		requestID = newID()
	}
	return &Error{Kind: kind, Code: code, Message: message, RequestID: requestID, Err: err}
}

func WebPeel(requestID, message string) *Error {
	return New(KindWebPeel, CodeInvalidInput, requestID, message, nil)
}

func SSRFBlocked(requestID, message string) *Error {
	return New(KindWebPeel, CodeSSRFBlocked, requestID, message, nil)
}

func InvalidURL(requestID, message string) *Error {
	return New(KindWebPeel, CodeInvalidURL, requestID, message, nil)
}

func Network(requestID, message string, err error) *Error {
	return New(KindNetwork, CodeNetwork, requestID, message, err)
}

func Timeout(requestID, message string) *Error {
	return New(KindTimeout, CodeTimeout, requestID, message, nil)
}

func Blocked(requestID, message string) *Error {
	return New(KindBlocked, CodeBlocked, requestID, message, nil)
}

func Internal(requestID, message string, err error) *Error {
	return New(KindWebPeel, CodeInternal, requestID, message, err)
}

// Is reports whether err (or anything it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == k
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
