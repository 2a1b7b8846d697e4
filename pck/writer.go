package pck

import (
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/bodgit/ufogfx/palette"
)

type encoder struct {
	w   io.Writer
	buf []byte
}

func (e *encoder) skip(n int) {
	for n > 0 {
		run := n
		if run > maxRun {
			run = maxRun
		}
		e.buf = append(e.buf, opSkip, byte(run))
		n -= run
	}
}

func (e *encoder) encode(m image.Image, cp color.Palette) error {
	b := m.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		if x > b.Min.X {
			e.buf = append(e.buf, opColumn)
		}

		run := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			c := m.At(x, y)
			if _, _, _, a := c.RGBA(); a == 0 {
				run++
				continue
			}
			e.skip(run)
			run = 0
			e.buf = append(e.buf, byte(cp.Index(c)))
		}
		// Trailing runs keep the column height
		e.skip(run)
	}
	e.buf = append(e.buf, opEnd)

	_, err := e.w.Write(e.buf)
	return err
}

// Encode writes the Image m to w as a single sprite frame. Opaque pixels are
// mapped to the closest color in p that isn't shadowed by a control byte and
// fully transparent pixels are encoded as transparent runs.
func Encode(w io.Writer, m image.Image, p *palette.Palette) error {
	b := m.Bounds()
	if b.Dx() > maxWidth || b.Dy() > maxHeight {
		return errors.New("pck: image is too big")
	}
	if p == nil {
		return errNoPalette
	}

	e := encoder{w: w}

	return e.encode(m, p.Colors()[:maxIndex+1])
}
