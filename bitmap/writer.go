package bitmap

import (
	"bufio"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/fachat/test-copilot-imgtransform/quantize"
	"github.com/fachat/test-copilot-imgtransform/raster"
)

var (
	errBadIndex = errors.New("bitmap: color index outside palette")
	errEmpty    = errors.New("bitmap: image is empty")
)

type fileHeader struct {
	Type      [2]byte
	Size      uint32
	Reserved1 uint16
	Reserved2 uint16
	OffBits   uint32
}

type infoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type encoder struct {
	w io.Writer
}

func padPalette(p color.Palette) color.Palette {
	// Pad palette to exactly ColorsPerPalette
	for len(p) < ColorsPerPalette {
		p = append(p, color.RGBA{0, 0, 0, 0xff})
	}
	return p
}

func (e *encoder) writeHeaders(m *image.Paletted) error {
	b := m.Bounds()
	size := RowStride(b.Dx()) * b.Dy()

	fh := fileHeader{
		Type:    [2]byte{'B', 'M'},
		Size:    uint32(pixelStart + size),
		OffBits: pixelStart,
	}
	if err := binary.Write(e.w, binary.LittleEndian, &fh); err != nil {
		return err
	}

	ih := infoHeader{
		Size:         infoHeaderLen,
		Width:        int32(b.Dx()),
		Height:       int32(b.Dy()),
		Planes:       1,
		BitCount:     bitsPerPixel,
		SizeImage:    uint32(size),
		ClrUsed:      ColorsPerPalette,
		ClrImportant: ColorsPerPalette,
	}
	return binary.Write(e.w, binary.LittleEndian, &ih)
}

func (e *encoder) writePalette(p color.Palette) error {
	var tmp [paletteLen]byte
	for i, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		tmp[i*4+0] = n.B
		tmp[i*4+1] = n.G
		tmp[i*4+2] = n.R
	}
	_, err := e.w.Write(tmp[:])
	return err
}

func (e *encoder) writePixels(m *image.Paletted) error {
	b := m.Bounds()
	row := make([]byte, RowStride(b.Dx()))
	n := byte(len(m.Palette))

	// Bottom row first
	for y := b.Dy() - 1; y >= 0; y-- {
		for i := range row {
			row[i] = 0
		}
		for x, idx := range m.Pix[y*m.Stride : y*m.Stride+b.Dx()] {
			if idx >= n {
				return errBadIndex
			}
			if x&1 == 0 {
				row[x>>1] |= idx << 4
			} else {
				row[x>>1] |= idx
			}
		}
		if _, err := e.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encode(m *image.Paletted) error {
	if err := e.writeHeaders(m); err != nil {
		return err
	}
	// Index checks use the real palette size, the file always has 16
	if err := e.writePalette(padPalette(append(color.Palette(nil), m.Palette...))); err != nil {
		return err
	}
	return e.writePixels(m)
}

// Encode writes the Image m to w in 16 color bitmap format. A paletted
// image with no more than 16 colors is written as is, any other image is
// first reduced to 16 colors with median cut.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Empty() {
		return errEmpty
	}

	pm, _ := m.(*image.Paletted)
	if pm == nil || len(pm.Palette) > ColorsPerPalette {
		src, err := raster.FromImage(m)
		if err != nil {
			return err
		}
		q := quantize.MedianCutQuantizer{}
		p := q.Quantize(make(color.Palette, 0, ColorsPerPalette), src)
		if len(p) == 0 {
			return errEmpty
		}
		pm = quantize.Map(src, quantize.FromColorPalette(p))
	}

	// Adjust image so that top-left corner is at (0, 0)
	if pm.Rect.Min != (image.Point{}) {
		dup := *pm
		dup.Rect = dup.Rect.Sub(dup.Rect.Min)
		pm = &dup
	}

	bw := bufio.NewWriter(w)
	e := encoder{w: bw}
	if err := e.encode(pm); err != nil {
		return err
	}
	return bw.Flush()
}
