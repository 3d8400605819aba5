package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures of the compression pipeline.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAdmissionDenied
	KindValidationFailed
	KindDecodeFailed
	KindEncodeFailed
	KindBundleEmpty
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindAdmissionDenied:
		return "admission_denied"
	case KindValidationFailed:
		return "validation_failed"
	case KindDecodeFailed:
		return "decode_failed"
	case KindEncodeFailed:
		return "encode_failed"
	case KindBundleEmpty:
		return "bundle_empty"
	case KindTimeout:
		return "timeout"
	}
	return "internal"
}

// HTTPStatus is the response status for errors of this kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindAdmissionDenied:
		return http.StatusTooManyRequests
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindDecodeFailed, KindBundleEmpty:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Error is a pipeline error with a client-safe message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrAdmissionDenied  = &Error{Kind: KindAdmissionDenied}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
	ErrDecodeFailed     = &Error{Kind: KindDecodeFailed}
	ErrEncodeFailed     = &Error{Kind: KindEncodeFailed}
	ErrBundleEmpty      = &Error{Kind: KindBundleEmpty}
	ErrTimeout          = &Error{Kind: KindTimeout}
)

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the message safe to show to clients.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
