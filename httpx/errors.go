package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Códigos de erro expostos no envelope.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeAlreadyInactive   = "ALREADY_INACTIVE"
	CodeConflict          = "CONFLICT"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

const internalMessage = "internal server error"

// Error é um erro já traduzido para a API: status HTTP, código e mensagem
// segura para o cliente.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(message string) *Error {
	return NewError(http.StatusBadRequest, CodeValidation, message)
}

func Unauthorized(message string) *Error {
	return NewError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return NewError(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *Error {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

func MethodNotAllowed(message string) *Error {
	return NewError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, message)
}

func InvalidTransition(message string) *Error {
	return NewError(http.StatusBadRequest, CodeInvalidTransition, message)
}

func AlreadyInactive(message string) *Error {
	return NewError(http.StatusBadRequest, CodeAlreadyInactive, message)
}

func Conflict(message string) *Error {
	return NewError(http.StatusConflict, CodeConflict, message)
}

func RateLimited(message string) *Error {
	return NewError(http.StatusTooManyRequests, CodeRateLimited, message)
}

func Unavailable(message string) *Error {
	return NewError(http.StatusServiceUnavailable, CodeUnavailable, message)
}

func Internal() *Error {
	return NewError(http.StatusInternalServerError, CodeInternal, internalMessage)
}

// AsError devolve o *Error contido em err. Qualquer outro erro vira
// INTERNAL_ERROR com mensagem genérica; o texto original nunca vai para o cliente.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return Internal(), false
}
