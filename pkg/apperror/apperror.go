// Package apperror defines the error taxonomy shared by every service and the
// echo error handler that renders it as a JSON body.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error for the transport boundary.
type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Postgres SQLSTATE codes the services translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	return StatusFor(e.Kind)
}

// StatusFor maps a kind to its HTTP status code.
func StatusFor(k Kind) int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...interface{}) *Error {
	return newf(KindBadRequest, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newf(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// Internal wraps an unexpected lower-level failure. The cause is logged by the
// error handler but never rendered to the client.
func Internal(cause error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind k.
func Is(err error, k Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == k
}

// FromDB translates a repository error. pgx.ErrNoRows becomes NotFound with
// the supplied message, unique and foreign key violations become Conflict, and
// anything else is wrapped as Internal. Already classified errors pass through.
func FromDB(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound("%s", notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &Error{Kind: KindConflict, Message: "resource already exists", Cause: err}
		case pgForeignKeyViolation:
			return &Error{Kind: KindConflict, Message: "referenced resource is in use or missing", Cause: err}
		}
	}
	return Internal(err, "internal server error")
}
