package imgtransform

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"image"
	"io"
	"os"

	// Input formats
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/fachat/test-copilot-imgtransform/bitmap"
	"github.com/fachat/test-copilot-imgtransform/quantize"
	"github.com/fachat/test-copilot-imgtransform/raster"
)

// Transform crops, resizes and quantizes src according to the options and
// returns the indexed result with its palette attached.
func (c *Converter) Transform(src *raster.RGB) (*image.Paletted, error) {
	m := src

	if c.opts.Crop {
		cropped, ok, err := raster.CropToAspect(m, c.opts.Width, c.opts.Height)
		if err != nil {
			return nil, err
		}
		if ok {
			c.logger.Printf("Cropped %dx%d to %dx%d\n", m.Width, m.Height, cropped.Width, cropped.Height)
			m = cropped
		}
	}

	resized, err := raster.Resize(m, c.opts.Width, c.opts.Height)
	if err != nil {
		return nil, err
	}

	_, pm, err := quantize.Quantize(resized, c.opts.Colors, c.opts.Mode)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// Encode transforms src and returns the encoded bitmap.
func (c *Converter) Encode(src *raster.RGB) ([]byte, error) {
	pm, err := c.Transform(src)
	if err != nil {
		return nil, err
	}

	b := new(bytes.Buffer)
	if err := bitmap.Encode(b, pm); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Convert reads an encoded image from r and writes the converted bitmap to
// w. Nothing is written to w if the conversion fails.
func (c *Converter) Convert(r io.Reader, w io.Writer) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	sha := fmt.Sprintf("%X", sha1.Sum(b))

	if c.cache != nil {
		cached, err := c.cache.Lookup(sha, c.opts)
		if err != nil {
			return err
		}
		if cached != nil {
			c.logger.Printf("Using cached bitmap for \"%s\"\n", sha)
			_, err = w.Write(cached)
			return err
		}
	}

	// Refuse oversized images before the decoder allocates them
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("imgtransform: %w", err)
	}
	if err := raster.CheckSize(cfg.Width, cfg.Height); err != nil {
		return err
	}

	m, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("imgtransform: %w", err)
	}
	c.logger.Printf("Decoded %s image, %dx%d\n", format, m.Bounds().Dx(), m.Bounds().Dy())

	src, err := raster.FromImage(m)
	if err != nil {
		return err
	}

	out, err := c.Encode(src)
	if err != nil {
		return err
	}

	if c.cache != nil {
		if err := c.cache.Store(sha, c.opts, out); err != nil {
			return err
		}
	}

	_, err = w.Write(out)
	return err
}

// ConvertFile converts the image in the file in and writes the bitmap to
// the file out. The output file is only created once the conversion has
// succeeded.
func (c *Converter) ConvertFile(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	b := new(bytes.Buffer)
	if err := c.Convert(f, b); err != nil {
		return err
	}

	return os.WriteFile(out, b.Bytes(), 0o644)
}
