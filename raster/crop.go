package raster

// roundHalfUp rounds v to the nearest integer with halves rounded up.
func roundHalfUp(v float64) int {
	return int(v + 0.5)
}

// Sub returns a copy of the width by height region of src whose top-left
// corner is at (x, y). The region must lie within src.
func Sub(src *RGB, x, y, width, height int) (*RGB, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || width > src.Width-x || height > src.Height-y {
		return nil, ErrInvalidDimensions
	}

	dst, err := New(width, height)
	if err != nil {
		return nil, err
	}
	n := width * BytesPerPixel
	for row := 0; row < height; row++ {
		i := src.PixOffset(x, y+row)
		copy(dst.Pix[row*n:(row+1)*n], src.Pix[i:i+n])
	}
	return dst, nil
}

// CropToAspect crops src symmetrically so that its aspect ratio matches
// targetWidth:targetHeight. A source that is too wide loses columns from
// the left and right, one that is too tall loses rows from the top and
// bottom. When the aspect ratios are already equal no crop is needed and
// CropToAspect returns a nil raster and false; the caller should carry on
// with src.
func CropToAspect(src *RGB, targetWidth, targetHeight int) (*RGB, bool, error) {
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, false, ErrInvalidDimensions
	}
	if err := src.Validate(); err != nil {
		return nil, false, err
	}

	srcAspect := src.Aspect()
	targetAspect := float64(targetWidth) / float64(targetHeight)

	switch {
	case srcAspect > targetAspect:
		newWidth := roundHalfUp(float64(src.Height) * targetAspect)
		if newWidth < 1 {
			newWidth = 1
		}
		cropX := (src.Width - newWidth) / 2
		dst, err := Sub(src, cropX, 0, newWidth, src.Height)
		if err != nil {
			return nil, false, err
		}
		return dst, true, nil
	case srcAspect < targetAspect:
		newHeight := roundHalfUp(float64(src.Width) / targetAspect)
		if newHeight < 1 {
			newHeight = 1
		}
		cropY := (src.Height - newHeight) / 2
		dst, err := Sub(src, 0, cropY, src.Width, newHeight)
		if err != nil {
			return nil, false, err
		}
		return dst, true, nil
	default:
		return nil, false, nil
	}
}
