/*
Package bitmap implements a decoder and encoder for 16 color Windows bitmap
files.

Each pixel is a 4-bit index into a palette of up to 16 colors, two pixels per
byte with the leftmost pixel in the upper nibble. Rows are padded to a
multiple of four bytes and stored bottom row first. The file is a 14 byte
file header, a 40 byte info header, a 64 byte palette of blue, green, red,
reserved quads and then the pixel rows. There is no compression.
*/
package bitmap

const (
	fileHeaderLen = 14
	infoHeaderLen = 40
	bitsPerPixel  = 4

	// ColorsPerPalette is the number of palette entries written.
	ColorsPerPalette = 1 << bitsPerPixel

	paletteLen = ColorsPerPalette * 4
	pixelStart = fileHeaderLen + infoHeaderLen + paletteLen
)

// RowStride returns the number of bytes used to store one row of a bitmap
// with the given width, including padding.
func RowStride(width int) int {
	return (width*bitsPerPixel + 31) / 32 * 4
}
