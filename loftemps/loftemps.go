/*
Package loftemps implements a decoder for the line-of-fire templates that
describe which voxels of a map tile block projectiles.

Like the sprite sheets a .dat file of templates is indexed by a .tab file of
byte offsets. Each template is a 32-bit little-endian width and height,
which must be equal, followed by height rows of bits packed into 32-bit
little-endian words with the most significant bit of the first word being
the leftmost voxel. A set bit is a blocking voxel.

The decoded image is only for visualisation and testing: blocking voxels are
opaque white and everything else is transparent. No palette is involved.
*/
package loftemps

import (
	"encoding/binary"
	"fmt"
	"image/color"

	"github.com/bodgit/ufogfx/asset"
)

const (
	headerSize = 8
	wordBits   = 32
	wordSize   = wordBits / 8

	maxSize = 256
)

var (
	blocking = color.NRGBA{0xff, 0xff, 0xff, 0xff}

	errNotSquare = fmt.Errorf("%w: loftemps: template is not square", asset.ErrDimensionMismatch)
	errTooBig    = fmt.Errorf("%w: loftemps: invalid template size", asset.ErrMalformed)
	errNotEnough = fmt.Errorf("%w: loftemps: not enough template data", asset.ErrTruncated)
)

// Decode returns template index of the template data indexed by tab.
func Decode(data []byte, tab asset.OffsetTable, index int) (*asset.Image, error) {
	start, end, err := tab.Span(index, len(data))
	if err != nil {
		return nil, err
	}
	b := data[start:end]

	if len(b) < headerSize {
		return nil, fmt.Errorf("template %d: %w", index, errNotEnough)
	}
	width := binary.LittleEndian.Uint32(b[0:])
	height := binary.LittleEndian.Uint32(b[4:])
	b = b[headerSize:]

	if width != height {
		return nil, fmt.Errorf("template %d: %w (%dx%d)", index, errNotSquare, width, height)
	}
	if width == 0 || width > maxSize {
		return nil, fmt.Errorf("template %d: %w (%dx%d)", index, errTooBig, width, height)
	}

	w, h := int(width), int(height)
	stride := (w + wordBits - 1) / wordBits * wordSize
	if len(b) < stride*h {
		return nil, fmt.Errorf("template %d: %w", index, errNotEnough)
	}

	img := asset.NewBuilder(w, h)
	for y := 0; y < h; y++ {
		row := b[y*stride:]
		for x := 0; x < w; x++ {
			word := binary.LittleEndian.Uint32(row[x/wordBits*wordSize:])
			if word&(1<<(wordBits-1-uint(x%wordBits))) != 0 {
				img.Set(x, y, blocking)
			}
		}
	}

	return img.Image(), nil
}
