/*
Package raw implements a decoder and encoder for the headerless indexed
bitmaps used for the game's borders and backgrounds.

The format is one palette index per pixel in row-major order with nothing
else in the file, so the width, height and palette must all be supplied by
the caller. A valid file is exactly width times height bytes long.
*/
package raw

const (
	maxColors = 256
)
