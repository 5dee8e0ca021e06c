package aggregate

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/pokedex-client/pkg/request"
)

// ErrNotFound is wrapped by ChainError when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Step names a fetch in a dependent chain.
type Step string

const (
	StepList      Step = "list"
	StepPokemon   Step = "pokemon"
	StepSpecies   Step = "species"
	StepEvolution Step = "evolution-chain"
)

// ChainError is a fatal failure of a chain step.
type ChainError struct {
	Step       Step
	Subject    string
	Message    string
	StatusCode int
	Kind       request.FailureKind
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch for %q failed (status %d): %s", e.Step, e.Subject, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s fetch for %q failed: %s", e.Step, e.Subject, e.Message)
}

// Unwrap returns ErrNotFound for 404 responses.
func (e *ChainError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

func chainError[T any](step Step, subject string, out request.Outcome[T]) *ChainError {
	msg := out.ErrorMessage
	if msg == "" {
		msg = request.UnknownErrorMessage
	}
	return &ChainError{
		Step:       step,
		Subject:    subject,
		Message:    msg,
		StatusCode: out.StatusCode,
		Kind:       out.Kind,
	}
}
