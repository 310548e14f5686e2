package imgtransform

import (
	"fmt"

	"github.com/fachat/test-copilot-imgtransform/bitmap"
	"github.com/fachat/test-copilot-imgtransform/quantize"
	"github.com/fachat/test-copilot-imgtransform/raster"
)

const (
	// DefaultWidth is the width of the produced bitmaps.
	DefaultWidth = 720
	// DefaultHeight is the height of the produced bitmaps.
	DefaultHeight = 576
	// DefaultColors is the number of palette entries.
	DefaultColors = bitmap.ColorsPerPalette
)

// Options control the conversion.
type Options struct {
	// Width and Height are the dimensions of the output
	Width  int
	Height int
	// Colors is the palette size, at most 16
	Colors int
	// Mode decides how the palette is chosen
	Mode quantize.Mode
	// Crop trims the source to the output aspect ratio before resizing
	Crop bool
}

// DefaultOptions returns the options for a 720x576 bitmap using the fixed
// VGA palette without cropping.
func DefaultOptions() Options {
	return Options{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Colors: DefaultColors,
		Mode:   quantize.Fixed,
	}
}

// Validate reports whether the options describe a conversion that can be
// carried out.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return raster.ErrInvalidDimensions
	}
	if o.Colors < 1 || o.Colors > bitmap.ColorsPerPalette {
		return quantize.ErrPaletteSize
	}
	if o.Mode == quantize.Fixed && o.Colors != bitmap.ColorsPerPalette {
		return quantize.ErrPaletteSize
	}
	if _, err := quantize.ParseMode(o.Mode.String()); err != nil {
		return err
	}
	return nil
}

// String returns a stable description of the options, used to tell cached
// results for the same input apart.
func (o Options) String() string {
	s := fmt.Sprintf("%dx%d/%d/%s", o.Width, o.Height, o.Colors, o.Mode)
	if o.Crop {
		s += "/crop"
	}
	return s
}
