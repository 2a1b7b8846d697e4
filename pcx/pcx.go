/*
Package pcx implements a decoder for the 256 colour PCX images used for the
game's full screen artwork.

The file starts with a 128 byte header giving the image window and the
number of bytes in each decoded scanline. Scanlines follow, either stored
as-is or run-length encoded where any byte with the top two bits set holds a
repeat count for the byte after it. The last 769 bytes are a 0x0c marker
and a palette of 256 8-bit red, green and blue triplets.

Only 8 bits per pixel, single plane images are supported since that is all
the game uses. Index 0 is opaque, the format has no notion of transparency.
*/
package pcx

const (
	headerSize = 128
	magic      = 0x0a

	encodingNone = 0
	encodingRLE  = 1

	rleMask  = 0xc0
	rleCount = 0x3f
)
