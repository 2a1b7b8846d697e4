/*
Package pck implements a decoder and encoder for the run-length encoded
sprite sheets used for units, buttons and the city and strategic maps.

A sprite sheet is a pair of files. The .pck file holds every frame one after
another and the .tab file holds the byte offset of each frame, so frame i
occupies the bytes from its offset up to the offset of frame i+1, or the end
of the file for the last frame.

Each frame is a column-major byte stream starting at the top-left pixel:

	0xff    end of sprite
	0xfe n  n transparent pixels down the current column
	0xfd    move to the top of the next column
	other   a palette index for the current pixel, then move down one

The frame's width is the number of columns and its height is that of the
tallest column. Strategic map frames are always drawn on a fixed 8 by 8
canvas and shadow frames replace every palette index with a translucent
black.
*/
package pck

import "image/color"

const (
	opColumn = 0xfd
	opSkip   = 0xfe
	opEnd    = 0xff

	// Literal indices must sit below the control bytes
	maxIndex = opColumn - 1
	maxRun   = 0xff

	maxWidth  = 640
	maxHeight = 480

	stratWidth  = 8
	stratHeight = stratWidth
)

var shadowColor = color.NRGBA{0x00, 0x00, 0x00, 0x80}
