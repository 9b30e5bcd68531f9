package domain

import (
	"errors"
	"fmt"
)

var (
	ErrHostNotFound      = errors.New("host not found")
	ErrListingNotFound   = errors.New("listing not found")
	ErrPlanNotFound      = errors.New("subscription plan not found")
	ErrPlanExists        = errors.New("subscription plan already exists")
	ErrPlanInactive      = errors.New("subscription plan is already inactive")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// TransitionError descreve uma mudança de status recusada. From vazio indica
// que o status mudou entre a leitura e a escrita.
type TransitionError struct {
	Resource string
	From     string
	To       string
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("%s status changed concurrently, cannot change it to %s", e.Resource, e.To)
	}
	return fmt.Sprintf("cannot change %s status from %s to %s", e.Resource, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid cria um ValidationError com mensagem para o cliente.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
