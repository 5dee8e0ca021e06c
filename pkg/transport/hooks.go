package transport

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Hook runs after every received response, successful or not, in the order
// it was configured. Hooks observe; they cannot change the outcome.
type Hook func(ctx context.Context, req *http.Request, resp *Response)

// StatusLogger logs responses by status: 401 and 403 get a dedicated
// message, other 4xx/5xx a generic warning.
func StatusLogger(logger zerolog.Logger) Hook {
	return func(_ context.Context, req *http.Request, resp *Response) {
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			logger.Error().
				Str("url", req.URL.String()).
				Msg("Unauthorized (401) - credentials missing or expired")
		case resp.StatusCode == http.StatusForbidden:
			logger.Error().
				Str("url", req.URL.String()).
				Msg("Forbidden (403) - caller lacks permissions")
		case resp.StatusCode >= 400:
			logger.Warn().
				Str("url", req.URL.String()).
				Int("status", resp.StatusCode).
				Msg("PokéAPI request error")
		}
	}
}

// GateHook feeds responses into a fair-use gate.
func GateHook(gate Gate, logger zerolog.Logger) Hook {
	return func(ctx context.Context, _ *http.Request, resp *Response) {
		if err := gate.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			logger.Warn().Err(err).Msg("Failed to update fair-use state")
		}
	}
}
