package bitmap

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
	"math"
)

// maxPixels bounds the size of a decoded image.
const maxPixels = math.MaxInt32

var (
	errNotBitmap   = errors.New("bitmap: not a bitmap file")
	errUnsupported = errors.New("bitmap: unsupported bitmap variant")
	errNotEnough   = errors.New("bitmap: not enough image data")
	errBadPalette  = errors.New("bitmap: invalid palette index")
	errTooLarge    = errors.New("bitmap: image too large")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func upperNibble(b byte) byte {
	return b & 0xf0
}

func lowerNibble(b byte) byte {
	return b & 0x0f
}

type decoder struct {
	r io.Reader

	width, height int
	topDown       bool
	offset        int

	image   *image.Paletted
	palette color.Palette
}

func (d *decoder) readHeaders() error {
	var fh fileHeader
	if err := binary.Read(d.r, binary.LittleEndian, &fh); err != nil {
		return err
	}
	if fh.Type != [2]byte{'B', 'M'} {
		return errNotBitmap
	}

	var ih infoHeader
	if err := binary.Read(d.r, binary.LittleEndian, &ih); err != nil {
		return err
	}
	if ih.Size != infoHeaderLen || ih.Planes != 1 || ih.BitCount != bitsPerPixel || ih.Compression != 0 {
		return errUnsupported
	}
	if ih.Width <= 0 || ih.Height == 0 {
		return errUnsupported
	}

	d.width = int(ih.Width)
	d.height = int(ih.Height)
	if d.height < 0 {
		d.height, d.topDown = -d.height, true
	}
	if d.width > maxPixels/d.height {
		return errTooLarge
	}

	colors := int(ih.ClrUsed)
	if colors == 0 {
		colors = ColorsPerPalette
	}
	if colors > ColorsPerPalette {
		return errUnsupported
	}
	d.palette = make(color.Palette, colors)

	d.offset = int(fh.OffBits) - fileHeaderLen - infoHeaderLen - colors*4
	if d.offset < 0 {
		return errUnsupported
	}

	return nil
}

func (d *decoder) readPalette() error {
	tmp := make([]byte, len(d.palette)*4)
	if err := readFull(d.r, tmp); err != nil {
		return err
	}
	for i := range d.palette {
		d.palette[i] = color.RGBA{tmp[i*4+2], tmp[i*4+1], tmp[i*4+0], 0xff}
	}

	// Skip anything between the palette and the pixels
	_, err := io.CopyN(io.Discard, d.r, int64(d.offset))
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (d *decoder) readPixels() error {
	d.image = image.NewPaletted(image.Rect(0, 0, d.width, d.height), d.palette)

	row := make([]byte, RowStride(d.width))
	n := byte(len(d.palette))
	for i := 0; i < d.height; i++ {
		if err := readFull(d.r, row); err != nil {
			return err
		}

		y := d.height - 1 - i
		if d.topDown {
			y = i
		}

		pix := d.image.Pix[y*d.image.Stride : y*d.image.Stride+d.width]
		for x := range pix {
			var idx byte
			if x&1 == 0 {
				idx = upperNibble(row[x>>1]) >> 4
			} else {
				idx = lowerNibble(row[x>>1])
			}
			if idx >= n {
				return errBadPalette
			}
			pix[x] = idx
		}
	}
	return nil
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	d.r = r

	if err := d.readHeaders(); err != nil {
		if err != io.ErrUnexpectedEOF && err != io.EOF {
			return err
		}
		return errNotEnough
	}

	if err := d.readPalette(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return errNotEnough
	}

	if configOnly {
		return nil
	}

	if err := d.readPixels(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return errNotEnough
	}

	return nil
}

// Decode reads a 16 color bitmap from r and returns it as an
// *image.Paletted.
func Decode(r io.Reader) (image.Image, error) {
	var d decoder
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return d.image, nil
}

// DecodeConfig returns the color model and dimensions of a 16 color bitmap
// without decoding the pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.decode(r, true); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: d.palette,
		Width:      d.width,
		Height:     d.height,
	}, nil
}
