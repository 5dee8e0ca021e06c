// Package color derives a representative colour from an image and picks a
// readable text colour for it.
package color

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Text colours for dark and light backgrounds.
const (
	TextOnDark  = "#FFFFFF"
	TextOnLight = "#000000"
)

// DefaultPair is used when no colour can be derived.
var DefaultPair = Pair{Background: "#e0e0e0", Text: "#212121"}

// ErrNoOpaquePixels is returned for fully transparent images.
var ErrNoOpaquePixels = errors.New("image has no opaque pixels")

// Sample is a representative colour. A is the mean alpha (0-255).
type Sample struct {
	R, G, B, A uint8
	IsDark     bool
}

// Pair is a background colour with a readable text colour.
type Pair struct {
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Extractor computes a Sample for an image URL.
type Extractor interface {
	Extract(ctx context.Context, imageURL string) (Sample, error)
}

// NewSample builds a sample and computes IsDark from perceived brightness.
func NewSample(r, g, b, a uint8) Sample {
	yiq := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
	return Sample{R: r, G: g, B: b, A: a, IsDark: yiq < 128}
}

// Hex returns the colour as #rrggbb, ignoring alpha.
func (s Sample) Hex() string {
	return s.colorful().Hex()
}

// RGBA returns a CSS rgba() string, alpha rounded to three decimals.
func (s Sample) RGBA() string {
	alpha := strconv.FormatFloat(math.Round(float64(s.A)/255*1000)/1000, 'f', -1, 64)
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", s.R, s.G, s.B, alpha)
}

// Pair returns the sample as background with white text on dark colours
// and black text otherwise.
func (s Sample) Pair() Pair {
	text := TextOnLight
	if s.IsDark {
		text = TextOnDark
	}
	return Pair{Background: s.RGBA(), Text: text}
}

func (s Sample) colorful() colorful.Color {
	return colorful.Color{R: float64(s.R) / 255, G: float64(s.G) / 255, B: float64(s.B) / 255}
}

// ParseHex validates a #rgb or #rrggbb colour and normalizes it to
// lower-case #rrggbb.
func ParseHex(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[0] == '#' {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return "", fmt.Errorf("parse colour %q: %w", s, err)
	}
	return c.Hex(), nil
}

// Average computes the alpha-weighted root mean square of every pixel.
// Fully transparent pixels contribute nothing; A is the mean alpha over all
// pixels.
func Average(img image.Image) (Sample, error) {
	bounds := img.Bounds()
	var rSum, gSum, bSum, aSum float64
	count := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			count++
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			// RGBA returns alpha-premultiplied 16 bit values.
			alpha := float64(a>>8) / 255
			rf := float64(r) / float64(a) * 255
			gf := float64(g) / float64(a) * 255
			bf := float64(b) / float64(a) * 255

			rSum += rf * rf * alpha
			gSum += gf * gf * alpha
			bSum += bf * bf * alpha
			aSum += alpha
		}
	}

	if aSum == 0 {
		return Sample{}, ErrNoOpaquePixels
	}

	return NewSample(
		channel(math.Sqrt(rSum/aSum)),
		channel(math.Sqrt(gSum/aSum)),
		channel(math.Sqrt(bSum/aSum)),
		channel(aSum/float64(count)*255),
	), nil
}

func channel(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
