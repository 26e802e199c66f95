// Package failure defines the typed failures of the submission pipeline.
//
// Every stage of a submission reports problems as a *Error carrying a stable
// Kind. Callers branch on the Kind (or use errors.Is with the sentinels below)
// and never on the message text, which is meant for logs.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindValidation     Kind = "Validation"
	KindImageDecode    Kind = "ImageDecode"
	KindImageTooLarge  Kind = "ImageTooLarge"
	KindFormat         Kind = "Format"
	KindDecrypt        Kind = "Decrypt"
	KindParse          Kind = "Parse"
	KindNetwork        Kind = "Network"
	KindServer         Kind = "Server"
	KindResponseDecode Kind = "ResponseDecode"
	KindInternal       Kind = "Internal"
	KindCanceled       Kind = "Canceled"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrImageDecode    = &Error{Kind: KindImageDecode}
	ErrImageTooLarge  = &Error{Kind: KindImageTooLarge}
	ErrFormat         = &Error{Kind: KindFormat}
	ErrDecrypt        = &Error{Kind: KindDecrypt}
	ErrParse          = &Error{Kind: KindParse}
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrServer         = &Error{Kind: KindServer}
	ErrResponseDecode = &Error{Kind: KindResponseDecode}
	ErrInternal       = &Error{Kind: KindInternal}
	ErrCanceled       = &Error{Kind: KindCanceled}
)

// Rule names used in violations.
const (
	RuleRequired = "required"
	RulePattern  = "pattern"
	RuleMaxCount = "max_count"
)

// Violation names one failing form field and the rule it broke.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error is the pipeline's structured error type.
type Error struct {
	Kind    Kind
	Message string

	// Violations lists every failing field of a Validation error, in form order.
	Violations []Violation

	// Limit is the byte ceiling an ImageTooLarge error exceeded.
	Limit int

	// Status is the HTTP status of a Server error.
	Status int

	// Remote is the counterpart's own error text, when it could be read.
	Remote string

	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(string(e.Kind)) + " failure"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Validation builds a Validation error listing every violation.
func Validation(violations []Violation) *Error {
	names := make([]string, len(violations))
	for i, v := range violations {
		names[i] = v.Field
	}
	return &Error{
		Kind:       KindValidation,
		Message:    "invalid fields: " + strings.Join(names, ", "),
		Violations: violations,
	}
}

// ImageDecode reports an image that could not be decoded or encoded.
func ImageDecode(name string, cause error) *Error {
	return &Error{Kind: KindImageDecode, Message: fmt.Sprintf("could not process image %q", name), Cause: cause}
}

// ImageTooLarge reports an image over a byte ceiling.
func ImageTooLarge(name string, size, limit int) *Error {
	return &Error{
		Kind:    KindImageTooLarge,
		Message: fmt.Sprintf("image %q is %d bytes, limit is %d", name, size, limit),
		Limit:   limit,
	}
}

// Format reports an envelope without the version tag or with invalid base64.
func Format(cause error) *Error {
	return &Error{Kind: KindFormat, Message: "unrecognized envelope", Cause: cause}
}

// Decrypt reports ciphertext that failed to decrypt or unpad.
func Decrypt(cause error) *Error {
	return &Error{Kind: KindDecrypt, Message: "envelope decryption failed", Cause: cause}
}

// Parse reports decrypted plaintext that is not valid JSON.
func Parse(cause error) *Error {
	return &Error{Kind: KindParse, Message: "envelope plaintext is not valid JSON", Cause: cause}
}

// Network reports a transport failure before any response arrived.
func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "request failed", Cause: cause}
}

// Server reports a non-2xx response. remote is the counterpart's error text, if any.
func Server(status int, remote string) *Error {
	return &Error{
		Kind:    KindServer,
		Message: fmt.Sprintf("server responded with status %d", status),
		Status:  status,
		Remote:  remote,
	}
}

// ResponseDecode reports a response body that could not be opened.
func ResponseDecode(cause error) *Error {
	return &Error{Kind: KindResponseDecode, Message: "could not decode server response", Cause: cause}
}

// Internal reports a programming or configuration error.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// Canceled reports a submission stopped by its context.
func Canceled(cause error) *Error {
	return &Error{Kind: KindCanceled, Message: "submission canceled", Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Fields returns the failing field names of a Validation error.
func Fields(err error) []string {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindValidation {
		return nil
	}
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = v.Field
	}
	return names
}
