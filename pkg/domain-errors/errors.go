// Package domainerrors defines the coded error type services return to
// transports. Every error carries a coarse Code (mapped to an HTTP status at
// the boundary) and an optional Kind, the stable machine-readable rejection
// name surfaced to API clients.
package domainerrors

import "errors"

// Code classifies an error for transport mapping.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_failed"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Kind is the fine-grained rejection taxonomy of the registration engine.
type Kind string

const (
	KindMalformedInput          Kind = "MalformedInput"
	KindUnrecognizedSchema      Kind = "UnrecognizedSchema"
	KindUnknownType             Kind = "UnknownType"
	KindMissingFields           Kind = "MissingFields"
	KindUnauthenticated         Kind = "Unauthenticated"
	KindAuthorNotEligible       Kind = "AuthorNotEligible"
	KindIssuerMismatch          Kind = "IssuerMismatch"
	KindProofOfPossessionFailed Kind = "ProofOfPossessionFailed"
	KindDomainNotRegistered     Kind = "DomainNotRegistered"
	KindMissingCredentialFields Kind = "MissingCredentialFields"
	KindKeyGenUnavailable       Kind = "KeyGenUnavailable"
	KindPersistenceFailed       Kind = "PersistenceFailed"
	KindNotRegistered           Kind = "NotRegistered"
	KindIneligibleForLogin      Kind = "IneligibleForLogin"
)

// kindCodes maps each rejection kind to its transport code.
var kindCodes = map[Kind]Code{
	KindMalformedInput:          CodeBadRequest,
	KindUnrecognizedSchema:      CodeBadRequest,
	KindUnknownType:             CodeBadRequest,
	KindMissingFields:           CodeValidation,
	KindUnauthenticated:         CodeUnauthorized,
	KindAuthorNotEligible:       CodeForbidden,
	KindIssuerMismatch:          CodeForbidden,
	KindProofOfPossessionFailed: CodeForbidden,
	KindDomainNotRegistered:     CodeBadRequest,
	KindMissingCredentialFields: CodeBadRequest,
	KindKeyGenUnavailable:       CodeUnavailable,
	KindPersistenceFailed:       CodeInternal,
	KindNotRegistered:           CodeUnauthorized,
	KindIneligibleForLogin:      CodeForbidden,
}

// Error is the concrete coded error. Fields stay exported so transports can
// shape responses without type switches beyond errors.As.
type Error struct {
	Code    Code
	Kind    Kind
	Message string
	Fields  []string // populated for MissingFields / MissingCredentialFields
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an error with a transport code only.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NewKind builds a taxonomy error; the transport code is derived from the kind.
func NewKind(kind Kind, msg string) *Error {
	code, ok := kindCodes[kind]
	if !ok {
		code = CodeInternal
	}
	return &Error{Code: code, Kind: kind, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// WrapKind attaches a taxonomy kind to an underlying cause.
func WrapKind(err error, kind Kind, msg string) *Error {
	e := NewKind(kind, msg)
	e.cause = err
	return e
}

// WithFields records the field names behind a MissingFields rejection.
func (e *Error) WithFields(fields ...string) *Error {
	e.Fields = fields
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// HasKind reports whether err (or anything it wraps) carries the given kind.
func HasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for plain
// errors so nothing leaks unmapped to a client.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
