package pck

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/bodgit/ufogfx/asset"
	"github.com/bodgit/ufogfx/palette"
)

var (
	errNoEnd     = fmt.Errorf("%w: pck: stream ends without end of sprite", asset.ErrMalformed)
	errNoRun     = fmt.Errorf("%w: pck: stream ends inside a transparent run", asset.ErrMalformed)
	errTooWide   = fmt.Errorf("%w: pck: column outside of frame bounds", asset.ErrMalformed)
	errTooTall   = fmt.Errorf("%w: pck: row outside of frame bounds", asset.ErrMalformed)
	errNoPalette = errors.New("pck: no palette")
)

type cell struct {
	x, y  int
	index byte
}

type variant struct {
	maxWidth, maxHeight int
	// Fixed canvases are always maxWidth by maxHeight
	fixed bool
	color func(*palette.Palette, byte) color.NRGBA
}

func paletteColor(p *palette.Palette, i byte) color.NRGBA {
	return p[i]
}

func shadow(*palette.Palette, byte) color.NRGBA {
	return shadowColor
}

var (
	full  = variant{maxWidth, maxHeight, false, paletteColor}
	strat = variant{stratWidth, stratHeight, true, paletteColor}
	dark  = variant{maxWidth, maxHeight, false, shadow}
)

type decoder struct {
	b []byte
	v variant

	cells         []cell
	width, height int
}

func (d *decoder) readFrame() error {
	x, y := 0, 0
	for i := 0; ; {
		if i >= len(d.b) {
			return errNoEnd
		}
		op := d.b[i]
		i++

		switch op {
		case opEnd:
			if d.height > 0 {
				d.width = x + 1
			}
			return nil
		case opColumn:
			x, y = x+1, 0
			if x >= d.v.maxWidth {
				return errTooWide
			}
		case opSkip:
			if i >= len(d.b) {
				return errNoRun
			}
			y += int(d.b[i])
			i++
			if y > d.v.maxHeight {
				return errTooTall
			}
		default:
			if y >= d.v.maxHeight {
				return errTooTall
			}
			d.cells = append(d.cells, cell{x, y, op})
			y++
		}

		if y > d.height {
			d.height = y
		}
	}
}

func (d *decoder) decode(data []byte, tab asset.OffsetTable, index int, p *palette.Palette) (*asset.Image, error) {
	if p == nil {
		return nil, errNoPalette
	}

	start, end, err := tab.Span(index, len(data))
	if err != nil {
		return nil, err
	}
	d.b = data[start:end]

	if err := d.readFrame(); err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}

	if d.v.fixed {
		d.width, d.height = d.v.maxWidth, d.v.maxHeight
	} else if d.height == 0 {
		d.width = 0
	}

	b := asset.NewBuilder(d.width, d.height)
	for _, c := range d.cells {
		b.Set(c.x, c.y, d.v.color(p, c.index))
	}

	return b.Image(), nil
}

// Decode returns frame index of the sprite sheet data indexed by tab, mapping
// each pixel through p.
func Decode(data []byte, tab asset.OffsetTable, index int, p *palette.Palette) (*asset.Image, error) {
	d := decoder{v: full}
	return d.decode(data, tab, index, p)
}

// DecodeStrat returns frame index of a strategic map sprite sheet on a fixed
// 8 by 8 canvas. Pixels not covered by the frame are transparent.
func DecodeStrat(data []byte, tab asset.OffsetTable, index int, p *palette.Palette) (*asset.Image, error) {
	d := decoder{v: strat}
	return d.decode(data, tab, index, p)
}

// DecodeShadow returns frame index of a shadow sprite sheet as a translucent
// black silhouette. p must still be valid even though no colours are taken
// from it.
func DecodeShadow(data []byte, tab asset.OffsetTable, index int, p *palette.Palette) (*asset.Image, error) {
	d := decoder{v: dark}
	return d.decode(data, tab, index, p)
}
