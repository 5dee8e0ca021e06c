package color

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"

	// Decoders for the formats sprite hosts serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Sternrassler/pokedex-client/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HTTPExtractor downloads images through a transport and averages them.
type HTTPExtractor struct {
	doer   transport.Doer
	logger zerolog.Logger
}

// NewHTTPExtractor creates an extractor that fetches images with doer.
func NewHTTPExtractor(doer transport.Doer) *HTTPExtractor {
	return &HTTPExtractor{
		doer:   doer,
		logger: log.With().Str("component", "color-extractor").Logger(),
	}
}

// Extract downloads imageURL and returns its representative colour.
func (e *HTTPExtractor) Extract(ctx context.Context, imageURL string) (Sample, error) {
	if imageURL == "" {
		return Sample{}, fmt.Errorf("extract colour: empty image url")
	}

	resp, err := e.doer.Do(ctx, transport.Request{
		URL:     imageURL,
		Headers: http.Header{"Accept": []string{"image/png,image/jpeg,image/gif,image/*"}},
	})
	if err != nil {
		return Sample{}, fmt.Errorf("download image: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return Sample{}, fmt.Errorf("decode image: %w", err)
	}

	sample, err := Average(img)
	if err != nil {
		return Sample{}, err
	}

	e.logger.Debug().
		Str("url", imageURL).
		Str("format", format).
		Str("color", sample.Hex()).
		Bool("dark", sample.IsDark).
		Msg("Extracted colour")

	return sample, nil
}
