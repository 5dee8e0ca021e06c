package color

import (
	"bytes"
	"context"
	"image"
	stdcolor "image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sternrassler/pokedex-client/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c stdcolor.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNewSample_IsDark(t *testing.T) {
	tests := []struct {
		name       string
		r, g, b    uint8
		wantIsDark bool
	}{
		{name: "black", wantIsDark: true},
		{name: "white", r: 255, g: 255, b: 255},
		{name: "pure blue is dark", b: 255, wantIsDark: true},
		{name: "pure green is light", g: 255},
		{name: "threshold", r: 128, g: 128, b: 128},
		{name: "just below threshold", r: 127, g: 127, b: 127, wantIsDark: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIsDark, NewSample(tt.r, tt.g, tt.b, 255).IsDark)
		})
	}
}

func TestSample_Formatting(t *testing.T) {
	s := NewSample(120, 200, 80, 255)
	assert.Equal(t, "#78c850", s.Hex())
	assert.Equal(t, "rgba(120,200,80,1)", s.RGBA())
	assert.Equal(t, Pair{Background: "rgba(120,200,80,1)", Text: TextOnLight}, s.Pair())

	half := NewSample(10, 20, 30, 128)
	assert.Equal(t, "rgba(10,20,30,0.502)", half.RGBA())
	assert.Equal(t, TextOnDark, half.Pair().Text)
}

func TestParseHex(t *testing.T) {
	got, err := ParseHex("#E0E0E0")
	require.NoError(t, err)
	assert.Equal(t, "#e0e0e0", got)

	got, err = ParseHex("#fff")
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", got)

	_, err = ParseHex("grey")
	assert.Error(t, err)
}

func TestAverage(t *testing.T) {
	t.Run("solid colour", func(t *testing.T) {
		s, err := Average(solid(4, 4, stdcolor.NRGBA{R: 240, G: 128, B: 48, A: 255}))
		require.NoError(t, err)
		assert.Equal(t, NewSample(240, 128, 48, 255), s)
	})

	t.Run("transparent pixels ignored for colour", func(t *testing.T) {
		img := solid(2, 1, stdcolor.NRGBA{})
		img.SetNRGBA(0, 0, stdcolor.NRGBA{R: 200, G: 0, B: 0, A: 255})

		s, err := Average(img)
		require.NoError(t, err)
		assert.Equal(t, uint8(200), s.R)
		assert.Equal(t, uint8(0), s.G)
		assert.Equal(t, uint8(128), s.A)
	})

	t.Run("root mean square", func(t *testing.T) {
		img := solid(2, 1, stdcolor.NRGBA{R: 0, A: 255})
		img.SetNRGBA(1, 0, stdcolor.NRGBA{R: 200, A: 255})

		s, err := Average(img)
		require.NoError(t, err)
		// sqrt((0 + 200^2) / 2)
		assert.Equal(t, uint8(141), s.R)
	})

	t.Run("fully transparent", func(t *testing.T) {
		_, err := Average(solid(3, 3, stdcolor.NRGBA{}))
		assert.ErrorIs(t, err, ErrNoOpaquePixels)
	})
}

func TestHTTPExtractor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(8, 8, stdcolor.NRGBA{R: 30, G: 30, B: 90, A: 255})))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sprites/1.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(buf.Bytes())
		case "/sprites/broken.png":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := transport.DefaultConfig("pokedex-test/1.0")
	cfg.BaseURL = server.URL + "/"
	tr, err := transport.New(cfg)
	require.NoError(t, err)

	ex := NewHTTPExtractor(tr)
	ctx := context.Background()

	s, err := ex.Extract(ctx, server.URL+"/sprites/1.png")
	require.NoError(t, err)
	assert.Equal(t, NewSample(30, 30, 90, 255), s)
	assert.True(t, s.IsDark)
	assert.Equal(t, TextOnDark, s.Pair().Text)

	_, err = ex.Extract(ctx, server.URL+"/sprites/broken.png")
	assert.ErrorContains(t, err, "decode image")

	_, err = ex.Extract(ctx, server.URL+"/sprites/missing.png")
	var apiErr *transport.APIError
	assert.ErrorAs(t, err, &apiErr)

	_, err = ex.Extract(ctx, "")
	assert.Error(t, err)
}
