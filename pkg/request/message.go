package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/Sternrassler/pokedex-client/pkg/transport"
)

// UnknownErrorMessage is used when nothing better can be derived.
const UnknownErrorMessage = "an unknown error occurred"

// errorBody is the structured error shape some APIs return.
type errorBody struct {
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// describe derives the user-facing message, status and kind of a failed
// call. Message priority: body "message", then the serialized body
// "errors", then the error text, then UnknownErrorMessage.
func describe(err error) (message string, status int, kind FailureKind) {
	if err == nil {
		return "", 0, FailureNone
	}
	if errors.Is(err, context.Canceled) {
		return "", 0, FailureCancelled
	}

	kind = FailureUnknown
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		if apiErr.IsTransportFailure() || status == 0 {
			kind = FailureTransport
		} else {
			kind = FailureServer
		}
		if msg := messageFromBody(apiErr.Body); msg != "" {
			return msg, status, kind
		}
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = FailureTransport
	}

	if text := err.Error(); text != "" {
		return text, status, kind
	}
	return UnknownErrorMessage, status, kind
}

func messageFromBody(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	if len(eb.Errors) == 0 || string(eb.Errors) == "null" {
		return ""
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, eb.Errors); err != nil {
		return string(eb.Errors)
	}
	return compact.String()
}
