package raster

// Resize scales src to exactly width by height pixels using nearest-neighbor
// sampling. Destination pixel (x, y) is a verbatim copy of source pixel
// (x*src.Width/width, y*src.Height/height), each coordinate rounded down.
// No filtering is applied, so downscaling aliases and upscaling is blocky.
func Resize(src *RGB, width, height int) (*RGB, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	dst, err := New(width, height)
	if err != nil {
		return nil, err
	}

	// Source column offsets are the same for every row
	cols := make([]int, width)
	for x := range cols {
		cols[x] = x * src.Width / width * BytesPerPixel
	}

	for y := 0; y < height; y++ {
		sy := y * src.Height / height
		srow := src.Pix[sy*src.Width*BytesPerPixel : (sy+1)*src.Width*BytesPerPixel]
		drow := dst.Pix[y*width*BytesPerPixel : (y+1)*width*BytesPerPixel]
		for x, sx := range cols {
			copy(drow[x*BytesPerPixel:x*BytesPerPixel+BytesPerPixel], srow[sx:sx+BytesPerPixel])
		}
	}

	return dst, nil
}
