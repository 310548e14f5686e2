package quantize

import (
	"image/color"

	mediancut "github.com/ericpauley/go-quantize/quantize"
	"github.com/fachat/test-copilot-imgtransform/raster"
)

// BuildWeightedPalette builds an n color palette for src from its distinct
// colors, each weighted by how often it occurs. Unused entries are black.
func BuildWeightedPalette(src *raster.RGB, n int) (Palette, error) {
	if n < 1 || n > MaxColors {
		return nil, ErrPaletteSize
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	q := mediancut.MedianCutQuantizer{}
	cp := q.Quantize(make(color.Palette, 0, n), src)
	if len(cp) > n {
		cp = cp[:n]
	}

	p := make(Palette, n)
	copy(p, FromColorPalette(cp))
	return p, nil
}
