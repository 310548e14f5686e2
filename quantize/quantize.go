/*
Package quantize reduces an RGB raster to a small indexed palette.

Two palette sources are provided: a fixed 16 color table modelled on the
classic VGA text mode palette, and an adaptive median cut which splits the
image's colors into boxes and uses the mean of each box. A third source
wraps an external frequency weighted median cut. Whatever the source, each
pixel is then mapped to the palette entry closest to it in RGB space, with
no dithering.
*/
package quantize

import (
	"errors"
	"image"
	"image/color"

	"github.com/fachat/test-copilot-imgtransform/raster"
)

// MaxColors is the largest palette an indexed raster can reference.
const MaxColors = 256

var (
	// ErrPaletteSize is returned when the requested number of colors
	// cannot be honored.
	ErrPaletteSize = errors.New("quantize: invalid palette size")
	// ErrUnknownMode is returned for an unrecognized Mode.
	ErrUnknownMode = errors.New("quantize: unknown mode")
)

// Color is an opaque 24-bit color. It is comparable, so two palette entries
// are equal exactly when their components are.
type Color struct {
	R, G, B uint8
}

// RGBA implements the color.Color interface.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

func (c Color) channel(ch int) uint8 {
	switch ch {
	case red:
		return c.R
	case green:
		return c.G
	default:
		return c.B
	}
}

// Distance returns the squared euclidean distance between c and o.
func (c Color) Distance(o Color) int {
	dr := int(c.R) - int(o.R)
	dg := int(c.G) - int(o.G)
	db := int(c.B) - int(o.B)
	return dr*dr + dg*dg + db*db
}

// Palette is an ordered list of colors; the position of a color is its
// index in an indexed raster.
type Palette []Color

// Index returns the index of the palette entry closest to c. When several
// entries are equally close the lowest index wins.
func (p Palette) Index(c Color) int {
	best, bestDist := 0, int(^uint(0)>>1)
	for i, e := range p {
		if d := c.Distance(e); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// ColorPalette returns p as a color.Palette suitable for image.Paletted.
func (p Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c
	}
	return cp
}

// FromColorPalette converts any color.Palette into a Palette, discarding
// alpha.
func FromColorPalette(cp color.Palette) Palette {
	p := make(Palette, len(cp))
	for i, c := range cp {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		p[i] = Color{n.R, n.G, n.B}
	}
	return p
}

// Mode selects where the palette comes from.
type Mode int

const (
	// Fixed uses the constant VGA palette.
	Fixed Mode = iota
	// MedianCut builds an adaptive palette from the image.
	MedianCut
	// Weighted builds an adaptive palette from the image's distinct
	// colors weighted by their frequency.
	Weighted
)

var modeNames = map[Mode]string{
	Fixed:     "fixed",
	MedianCut: "median",
	Weighted:  "weighted",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMode returns the Mode with the given name.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, ErrUnknownMode
}

// Quantize picks an n color palette for src according to mode and maps
// every pixel onto it. The returned image references the palette and holds
// one index per pixel.
func Quantize(src *raster.RGB, n int, mode Mode) (Palette, *image.Paletted, error) {
	if n < 1 || n > MaxColors {
		return nil, nil, ErrPaletteSize
	}
	if err := src.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		p   Palette
		err error
	)
	switch mode {
	case Fixed:
		if n != len(vga) {
			return nil, nil, ErrPaletteSize
		}
		p = VGA()
	case MedianCut:
		p, err = BuildPalette(src, n)
	case Weighted:
		p, err = BuildWeightedPalette(src, n)
	default:
		return nil, nil, ErrUnknownMode
	}
	if err != nil {
		return nil, nil, err
	}

	return p, Map(src, p), nil
}

// Map assigns every pixel of src the index of its nearest color in p.
func Map(src *raster.RGB, p Palette) *image.Paletted {
	m := image.NewPaletted(image.Rect(0, 0, src.Width, src.Height), p.ColorPalette())

	// Flat regions repeat the same color, so remember previous answers
	seen := make(map[Color]uint8)
	for i := range m.Pix {
		o := i * raster.BytesPerPixel
		c := Color{src.Pix[o], src.Pix[o+1], src.Pix[o+2]}
		idx, ok := seen[c]
		if !ok {
			idx = uint8(p.Index(c))
			seen[c] = idx
		}
		m.Pix[i] = idx
	}

	return m
}
