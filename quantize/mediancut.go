package quantize

import (
	"image"
	"image/color"
	"sort"

	"github.com/fachat/test-copilot-imgtransform/raster"
)

// Color channels, in tie-break priority order
const (
	red = iota
	green
	blue
	numChannels
)

// box is a contiguous range [lo, hi) of the shared color arena along with
// the bounds of the colors inside it.
type box struct {
	lo, hi   int
	min, max Color
}

func newBox(colors []Color, lo, hi int) box {
	b := box{lo: lo, hi: hi}
	b.shrink(colors)
	return b
}

func (b *box) len() int {
	return b.hi - b.lo
}

// shrink recomputes the per-channel bounds from the colors in the box.
func (b *box) shrink(colors []Color) {
	b.min = Color{255, 255, 255}
	b.max = Color{}
	for _, c := range colors[b.lo:b.hi] {
		if c.R < b.min.R {
			b.min.R = c.R
		}
		if c.G < b.min.G {
			b.min.G = c.G
		}
		if c.B < b.min.B {
			b.min.B = c.B
		}
		if c.R > b.max.R {
			b.max.R = c.R
		}
		if c.G > b.max.G {
			b.max.G = c.G
		}
		if c.B > b.max.B {
			b.max.B = c.B
		}
	}
}

// widest returns the channel with the largest range and that range. Equal
// ranges resolve to red, then green, then blue.
func (b *box) widest() (int, int) {
	ch, span := red, 0
	for i := red; i < numChannels; i++ {
		if s := int(b.max.channel(i)) - int(b.min.channel(i)); s > span {
			ch, span = i, s
		}
	}
	return ch, span
}

// mean returns the average color of the box, truncated.
func (b *box) mean(colors []Color) Color {
	var r, g, bl uint64
	for _, c := range colors[b.lo:b.hi] {
		r += uint64(c.R)
		g += uint64(c.G)
		bl += uint64(c.B)
	}
	n := uint64(b.len())
	return Color{uint8(r / n), uint8(g / n), uint8(bl / n)}
}

// arena owns the flattened pixel colors; boxes only ever refer to ranges
// of it.
type arena struct {
	colors []Color
	boxes  []box
}

func newArena(src *raster.RGB) *arena {
	colors := make([]Color, src.Width*src.Height)
	for i := range colors {
		o := i * raster.BytesPerPixel
		colors[i] = Color{src.Pix[o], src.Pix[o+1], src.Pix[o+2]}
	}
	return &arena{
		colors: colors,
		boxes:  []box{newBox(colors, 0, len(colors))},
	}
}

// next returns the index of the box to split next: the one with the widest
// channel range, earliest first on ties. Boxes with fewer than two colors
// or no range at all cannot be split; -1 means nothing is left to split.
func (a *arena) next() int {
	best, bestSpan := -1, 0
	for i := range a.boxes {
		if a.boxes[i].len() < 2 {
			continue
		}
		if _, span := a.boxes[i].widest(); span > bestSpan {
			best, bestSpan = i, span
		}
	}
	return best
}

// split sorts box i along its widest channel and cuts it at the median.
// The lower half stays in slot i, the upper half becomes a new box.
func (a *arena) split(i int) {
	b := &a.boxes[i]
	ch, _ := b.widest()

	// Stable so equal colors keep their pixel order
	s := a.colors[b.lo:b.hi]
	sort.SliceStable(s, func(x, y int) bool {
		return s[x].channel(ch) < s[y].channel(ch)
	})

	mid := b.lo + b.len()/2
	upper := newBox(a.colors, mid, b.hi)
	b.hi = mid
	b.shrink(a.colors)

	a.boxes = append(a.boxes, upper)
}

// BuildPalette builds an n color palette for src using median cut. Every
// pixel counts, so large flat areas pull more of the palette towards them.
// If the image runs out of colors to split before n boxes exist, the
// remaining entries are black.
func BuildPalette(src *raster.RGB, n int) (Palette, error) {
	if n < 1 || n > MaxColors {
		return nil, ErrPaletteSize
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	a := newArena(src)
	for len(a.boxes) < n {
		i := a.next()
		if i < 0 {
			break
		}
		a.split(i)
	}

	p := make(Palette, n)
	for i := range a.boxes {
		p[i] = a.boxes[i].mean(a.colors)
	}
	return p, nil
}

// MedianCutQuantizer implements the draw.Quantizer interface using
// BuildPalette. Colors are added to fill the remaining capacity of the
// palette passed in.
type MedianCutQuantizer struct{}

// Quantize appends cap(p)-len(p) colors chosen from m to p.
func (MedianCutQuantizer) Quantize(p color.Palette, m image.Image) color.Palette {
	n := cap(p) - len(p)
	if n <= 0 {
		return p
	}
	if n > MaxColors {
		n = MaxColors
	}

	src, ok := m.(*raster.RGB)
	if !ok {
		var err error
		if src, err = raster.FromImage(m); err != nil {
			return p
		}
	}

	pal, err := BuildPalette(src, n)
	if err != nil {
		return p
	}
	for _, c := range pal {
		p = append(p, c)
	}
	return p
}
