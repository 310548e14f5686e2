/*
Package imgtransform converts images into fixed size 16 color bitmaps.

An image is decoded, optionally cropped to the target aspect ratio, resized
with nearest-neighbor sampling, reduced to a palette and written as a 4-bit
Windows bitmap. Single images and whole directory trees can be converted,
and results can be kept in a cache keyed on the input contents.
*/
package imgtransform

import (
	"io"
	"log"
)

// Converter runs the conversion pipeline with a fixed set of Options.
type Converter struct {
	opts   Options
	cache  *Cache
	logger *log.Logger
}

// New returns a Converter for opts. The cache and logger are optional.
func New(opts Options, cache *Cache, logger *log.Logger) (*Converter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Converter{
		opts:   opts,
		cache:  cache,
		logger: logger,
	}, nil
}

// Options returns the options the Converter was created with.
func (c *Converter) Options() Options {
	return c.opts
}
