// Package apperr define los tipos de error que los servicios de dominio
// exponen hacia afuera. Cada error concreto envuelve uno de los sentinels
// (Kind), así los callers pueden ramificar con errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidState  = errors.New("invalid state")
	ErrConfiguration = errors.New("configuration error")
	ErrAlreadyExists = errors.New("already exists")
)

// Error es un error de dominio con mensaje específico para el usuario.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) *Error     { return New(ErrNotFound, msg) }
func Forbidden(msg string) *Error    { return New(ErrForbidden, msg) }
func InvalidState(msg string) *Error { return New(ErrInvalidState, msg) }
func InvalidInput(msg string) *Error { return New(ErrInvalidInput, msg) }

// KindOf devuelve el sentinel que corresponde a err, o nil si no es de dominio.
func KindOf(err error) error {
	for _, k := range []error{
		ErrNotFound,
		ErrForbidden,
		ErrInvalidState,
		ErrConfiguration,
		ErrAlreadyExists,
		ErrInvalidInput,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// MessageOf devuelve el mensaje de usuario si err es un *Error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	if k := KindOf(err); k != nil {
		return k.Error()
	}
	return "internal error"
}
