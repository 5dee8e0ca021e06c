package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and fair-use blocks.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// ErrBlocked is returned while the fair-use gate holds requests back.
var ErrBlocked = errors.New("request blocked by fair-use gate")

// APIError is a failed PokéAPI call. Responses that were received carry
// StatusCode and Body; transport failures carry Err.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		if e.StatusCode == 0 {
			return fmt.Sprintf("pokeapi %s error: %s: %v", e.Class, e.Message, e.Err)
		}
		return fmt.Sprintf("pokeapi %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("pokeapi %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransportFailure reports whether no response was received.
func (e *APIError) IsTransportFailure() bool {
	return e.Class == ErrorClassNetwork
}

// Classify categorizes a status code; a non-nil err always means network.
func Classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
