/*
Package raster implements the decoded RGB raster used throughout the
conversion pipeline, along with the geometric stages that operate on it:
nearest-neighbor resizing and centered aspect-ratio cropping.

A raster is stored row-major with three bytes per pixel (R, G, B), no row
padding and no alpha, so the buffer is always exactly Width*Height*3 bytes.
*/
package raster

import (
	"errors"
	"image"
	"image/color"
	"math"
)

// BytesPerPixel is the number of bytes used to store one pixel.
const BytesPerPixel = 3

// maxBytes bounds the size of a single raster buffer.
const maxBytes = math.MaxInt32

var (
	// ErrInvalidDimensions is returned when a width or height is not
	// positive.
	ErrInvalidDimensions = errors.New("raster: invalid dimensions")
	// ErrTooLarge is returned when the buffer for a raster cannot be
	// allocated.
	ErrTooLarge = errors.New("raster: image too large to allocate")
)

// RGB is a row-major 24-bit raster. It implements the image.Image
// interface so it can be handed to anything that reads images.
type RGB struct {
	Width  int
	Height int
	Pix    []byte
}

func bufferSize(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, ErrInvalidDimensions
	}
	if width > maxBytes/BytesPerPixel/height {
		return 0, ErrTooLarge
	}
	return width * height * BytesPerPixel, nil
}

// CheckSize reports whether a width by height raster could be allocated,
// without allocating it.
func CheckSize(width, height int) error {
	_, err := bufferSize(width, height)
	return err
}

// New returns a black raster of the given dimensions.
func New(width, height int) (*RGB, error) {
	n, err := bufferSize(width, height)
	if err != nil {
		return nil, err
	}
	return &RGB{
		Width:  width,
		Height: height,
		Pix:    make([]byte, n),
	}, nil
}

// FromImage converts any decoded image into an RGB raster. Alpha is
// discarded rather than composited, so translucent pixels keep their
// underlying color.
func FromImage(m image.Image) (*RGB, error) {
	b := m.Bounds()
	dst, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	if n, ok := m.(*image.NRGBA); ok {
		for y := 0; y < dst.Height; y++ {
			src := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
			row := dst.Pix[y*dst.Width*BytesPerPixel:]
			for x := 0; x < dst.Width; x++ {
				copy(row[x*BytesPerPixel:x*BytesPerPixel+BytesPerPixel], src[x*4:x*4+3])
			}
		}
		return dst, nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			i += BytesPerPixel
		}
	}

	return dst, nil
}

// Validate reports whether the dimensions of m agree with its buffer.
func (m *RGB) Validate() error {
	n, err := bufferSize(m.Width, m.Height)
	if err != nil {
		return err
	}
	if len(m.Pix) != n {
		return ErrInvalidDimensions
	}
	return nil
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (m *RGB) PixOffset(x, y int) int {
	return (y*m.Width + x) * BytesPerPixel
}

// RGBAt returns the red, green and blue components of the pixel at (x, y).
func (m *RGB) RGBAt(x, y int) (r, g, b uint8) {
	i := m.PixOffset(x, y)
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// SetRGB sets the pixel at (x, y).
func (m *RGB) SetRGB(x, y int, r, g, b uint8) {
	i := m.PixOffset(x, y)
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = r, g, b
}

// ColorModel returns the color model of the raster.
func (m *RGB) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds returns the raster bounds, always anchored at the origin.
func (m *RGB) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At returns the color of the pixel at (x, y).
func (m *RGB) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(m.Bounds())) {
		return color.RGBA{}
	}
	r, g, b := m.RGBAt(x, y)
	return color.RGBA{r, g, b, 0xff}
}

// Aspect returns the width to height ratio of the raster.
func (m *RGB) Aspect() float64 {
	return float64(m.Width) / float64(m.Height)
}
