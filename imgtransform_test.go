package imgtransform

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fachat/test-copilot-imgtransform/bitmap"
	"github.com/fachat/test-copilot-imgtransform/quantize"
	"github.com/fachat/test-copilot-imgtransform/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	black = color.NRGBA{0, 0, 0, 0xff}
	white = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	red   = color.NRGBA{0xff, 0, 0, 0xff}
	blue  = color.NRGBA{0, 0, 0xff, 0xff}
)

func checkerboard(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)&1 == 0 {
				m.SetNRGBA(x, y, black)
			} else {
				m.SetNRGBA(x, y, white)
			}
		}
	}
	return m
}

func encodePNG(t *testing.T, m image.Image) []byte {
	b := new(bytes.Buffer)
	require.NoError(t, png.Encode(b, m))
	return b.Bytes()
}

func writePNG(t *testing.T, file string, m image.Image) {
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, encodePNG(t, m), 0o644))
}

func decodeBitmap(t *testing.T, b []byte) *image.Paletted {
	m, err := bitmap.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	pm, ok := m.(*image.Paletted)
	require.True(t, ok)
	return pm
}

func newConverter(t *testing.T, opts Options, cache *Cache) *Converter {
	c, err := New(opts, cache, nil)
	require.NoError(t, err)
	return c
}

func smallOptions(w, h int) Options {
	opts := DefaultOptions()
	opts.Width = w
	opts.Height = h
	return opts
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	tables := map[string]struct {
		mutate func(*Options)
		err    error
	}{
		"zero width": {
			func(o *Options) { o.Width = 0 },
			raster.ErrInvalidDimensions,
		},
		"negative height": {
			func(o *Options) { o.Height = -1 },
			raster.ErrInvalidDimensions,
		},
		"too many colors": {
			func(o *Options) { o.Colors = 17; o.Mode = quantize.MedianCut },
			quantize.ErrPaletteSize,
		},
		"no colors": {
			func(o *Options) { o.Colors = 0; o.Mode = quantize.MedianCut },
			quantize.ErrPaletteSize,
		},
		"short fixed palette": {
			func(o *Options) { o.Colors = 8 },
			quantize.ErrPaletteSize,
		},
		"unknown mode": {
			func(o *Options) { o.Mode = quantize.Mode(42) },
			quantize.ErrUnknownMode,
		},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			table.mutate(&opts)
			assert.Equal(t, table.err, opts.Validate())

			_, err := New(opts, nil, nil)
			assert.Equal(t, table.err, err)
		})
	}

	opts := DefaultOptions()
	opts.Colors = 8
	opts.Mode = quantize.MedianCut
	assert.NoError(t, opts.Validate())
}

func TestOptionsString(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "720x576/16/fixed", opts.String())

	opts.Mode = quantize.MedianCut
	opts.Colors = 4
	opts.Crop = true
	assert.Equal(t, "720x576/4/median/crop", opts.String())
}

func TestNewDefaults(t *testing.T) {
	c := newConverter(t, DefaultOptions(), nil)
	assert.Equal(t, DefaultOptions(), c.Options())
	assert.NotNil(t, c.logger)
}

func TestTransformCheckerboard(t *testing.T) {
	c := newConverter(t, smallOptions(4, 4), nil)

	src, err := raster.FromImage(checkerboard(4, 4))
	require.NoError(t, err)

	pm, err := c.Transform(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), pm.Bounds())
	assert.Equal(t, quantize.VGA().ColorPalette(), pm.Palette)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := uint8(15)
			if (x+y)&1 == 0 {
				want = 0
			}
			assert.Equal(t, want, pm.ColorIndexAt(x, y), "(%d, %d)", x, y)
		}
	}
}

func TestTransformCrop(t *testing.T) {
	// Red and blue bands either side of a white centre
	m := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			switch {
			case x < 2:
				m.SetNRGBA(x, y, red)
			case x >= 6:
				m.SetNRGBA(x, y, blue)
			default:
				m.SetNRGBA(x, y, white)
			}
		}
	}
	src, err := raster.FromImage(m)
	require.NoError(t, err)

	opts := smallOptions(4, 4)
	opts.Crop = true
	pm, err := newConverter(t, opts, nil).Transform(src)
	require.NoError(t, err)
	for _, idx := range pm.Pix {
		assert.Equal(t, uint8(15), idx)
	}

	opts.Crop = false
	pm, err = newConverter(t, opts, nil).Transform(src)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), pm.ColorIndexAt(0, 0))
	assert.Equal(t, uint8(15), pm.ColorIndexAt(1, 0))
	assert.Equal(t, uint8(15), pm.ColorIndexAt(2, 0))
	assert.Equal(t, uint8(1), pm.ColorIndexAt(3, 0))
}

func TestTransformMedianCut(t *testing.T) {
	opts := smallOptions(4, 4)
	opts.Mode = quantize.MedianCut
	opts.Colors = 2

	src, err := raster.FromImage(checkerboard(4, 4))
	require.NoError(t, err)

	pm, err := newConverter(t, opts, nil).Transform(src)
	require.NoError(t, err)
	require.Len(t, pm.Palette, 2)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, _, _, _ := pm.At(x, y).RGBA()
			if (x+y)&1 == 0 {
				assert.Equal(t, uint32(0), r)
			} else {
				assert.Equal(t, uint32(0xffff), r)
			}
		}
	}
}

func TestConvert(t *testing.T) {
	c := newConverter(t, smallOptions(4, 4), nil)

	out := new(bytes.Buffer)
	require.NoError(t, c.Convert(bytes.NewReader(encodePNG(t, checkerboard(4, 4))), out))

	pm := decodeBitmap(t, out.Bytes())
	assert.Equal(t, image.Rect(0, 0, 4, 4), pm.Bounds())
	assert.Equal(t, uint8(0), pm.ColorIndexAt(0, 0))
	assert.Equal(t, uint8(15), pm.ColorIndexAt(1, 0))
	assert.Equal(t, uint8(15), pm.ColorIndexAt(0, 1))
	assert.Equal(t, uint8(0), pm.ColorIndexAt(3, 3))
}

func TestConvertDefaultSize(t *testing.T) {
	c := newConverter(t, DefaultOptions(), nil)

	out := new(bytes.Buffer)
	require.NoError(t, c.Convert(bytes.NewReader(encodePNG(t, checkerboard(3, 5))), out))

	cfg, err := bitmap.DecodeConfig(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, cfg.Width)
	assert.Equal(t, DefaultHeight, cfg.Height)
	assert.Equal(t, bitmap.RowStride(DefaultWidth)*DefaultHeight+118, out.Len())
}

func TestConvertBadInput(t *testing.T) {
	c := newConverter(t, smallOptions(4, 4), nil)

	out := new(bytes.Buffer)
	err := c.Convert(strings.NewReader("not an image"), out)
	assert.ErrorIs(t, err, image.ErrFormat)
	assert.Equal(t, 0, out.Len())
}

func TestConvertOversized(t *testing.T) {
	// Small file whose header claims 40000x40000 pixels
	b := encodePNG(t, checkerboard(1, 1))
	require.Equal(t, "IHDR", string(b[12:16]))
	binary.BigEndian.PutUint32(b[16:20], 40000)
	binary.BigEndian.PutUint32(b[20:24], 40000)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))

	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	c := newConverter(t, smallOptions(4, 4), cache)

	out := new(bytes.Buffer)
	assert.ErrorIs(t, c.Convert(bytes.NewReader(b), out), raster.ErrTooLarge)
	assert.Equal(t, 0, out.Len())

	n, err := cache.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.bmp")
	writePNG(t, in, checkerboard(4, 4))

	c := newConverter(t, smallOptions(4, 4), nil)
	require.NoError(t, c.ConvertFile(in, out))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "BM", string(b[:2]))
	assert.Equal(t, uint8(15), decodeBitmap(t, b).ColorIndexAt(1, 0))

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))
	assert.Error(t, c.ConvertFile(bad, filepath.Join(dir, "bad.bmp")))
	assert.NoFileExists(t, filepath.Join(dir, "bad.bmp"))
}

func TestCache(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	opts := smallOptions(4, 4)

	b, err := cache.Lookup("ABCDEF", opts)
	require.NoError(t, err)
	assert.Nil(t, b)

	data := bytes.Repeat([]byte{0x12, 0x34}, 1000)
	require.NoError(t, cache.Store("ABCDEF", opts, data))

	b, err = cache.Lookup("ABCDEF", opts)
	require.NoError(t, err)
	assert.Equal(t, data, b)

	// Different options are a different entry
	other := opts
	other.Crop = true
	b, err = cache.Lookup("ABCDEF", other)
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, cache.Store("ABCDEF", opts, []byte("replaced")))
	n, err := cache.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, cache.Clear())
	n, err = cache.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConvertCached(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	opts := smallOptions(4, 4)
	c := newConverter(t, opts, cache)
	in := encodePNG(t, checkerboard(4, 4))

	first := new(bytes.Buffer)
	require.NoError(t, c.Convert(bytes.NewReader(in), first))

	n, err := cache.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second := new(bytes.Buffer)
	require.NoError(t, c.Convert(bytes.NewReader(in), second))
	assert.Equal(t, first.Bytes(), second.Bytes())

	// A hit is served without converting
	sha := fmt.Sprintf("%X", sha1.Sum(in))
	require.NoError(t, cache.Store(sha, opts, []byte("cached")))

	third := new(bytes.Buffer)
	require.NoError(t, c.Convert(bytes.NewReader(in), third))
	assert.Equal(t, "cached", third.String())
}

func TestConvertDirectory(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	writePNG(t, filepath.Join(src, "a.png"), checkerboard(4, 4))
	writePNG(t, filepath.Join(src, "sub", "b.PNG"), checkerboard(2, 2))
	writePNG(t, filepath.Join(src, ".hidden", "c.png"), checkerboard(4, 4))
	writePNG(t, filepath.Join(src, ".d.png"), checkerboard(4, 4))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("hello"), 0o644))

	c := newConverter(t, smallOptions(4, 4), nil)
	require.NoError(t, c.ConvertDirectory(src, dst))

	for _, file := range []string{"a.bmp", filepath.Join("sub", "b.bmp")} {
		b, err := os.ReadFile(filepath.Join(dst, file))
		require.NoError(t, err, file)
		assert.Equal(t, image.Rect(0, 0, 4, 4), decodeBitmap(t, b).Bounds())
	}

	assert.NoDirExists(t, filepath.Join(dst, ".hidden"))
	assert.NoFileExists(t, filepath.Join(dst, ".d.bmp"))
	assert.NoFileExists(t, filepath.Join(dst, "notes.bmp"))
}

func TestConvertDirectoryNested(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(src, "out")

	writePNG(t, filepath.Join(src, "a.png"), checkerboard(4, 4))

	c := newConverter(t, smallOptions(4, 4), nil)
	require.NoError(t, c.ConvertDirectory(src, dst))
	assert.FileExists(t, filepath.Join(dst, "a.bmp"))

	// A second run must not pick up its own output
	require.NoError(t, c.ConvertDirectory(src, dst))
	assert.NoDirExists(t, filepath.Join(dst, "out"))
}

func TestConvertDirectoryError(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	bad := filepath.Join(src, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))

	c := newConverter(t, smallOptions(4, 4), nil)
	err := c.ConvertDirectory(src, dst)
	require.Error(t, err)

	var ce *ConvertError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, bad, ce.File)
	assert.ErrorIs(t, err, image.ErrFormat)
	assert.NoFileExists(t, filepath.Join(dst, "bad.bmp"))
}

func TestConvertDirectoryClash(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writePNG(t, filepath.Join(src, "a.png"), checkerboard(4, 4))
	b := new(bytes.Buffer)
	require.NoError(t, gif.Encode(b, checkerboard(4, 4), nil))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.gif"), b.Bytes(), 0o644))

	c := newConverter(t, smallOptions(4, 4), nil)
	err := c.ConvertDirectory(src, dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputClash)

	// The walk is lexical so the GIF claims the output first
	var ce *ConvertError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, filepath.Join(src, "a.png"), ce.File)
}

func TestOutputPath(t *testing.T) {
	out, err := outputPath("/src", "/dst", "/src/a/b.jpeg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/dst", "a", "b.bmp"), out)

	assert.True(t, isImage("x.JPG"))
	assert.True(t, isImage("x.webp"))
	assert.False(t, isImage("x.txt"))
}
