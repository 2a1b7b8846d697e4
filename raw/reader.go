package raw

import (
	"errors"
	"fmt"
	"io"

	"github.com/bodgit/ufogfx/asset"
	"github.com/bodgit/ufogfx/palette"
)

var (
	errNoPalette = errors.New("raw: no palette")
	errBadSize   = errors.New("raw: invalid image size")
)

type decoder struct {
	r io.Reader

	width, height int
	palette       *palette.Palette

	tmp []byte
}

func (d *decoder) readPixels() error {
	d.tmp = make([]byte, d.width*d.height)
	n, err := io.ReadFull(d.r, d.tmp)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		return fmt.Errorf("%w: raw: %d bytes for %dx%d image", asset.ErrDimensionMismatch, n, d.width, d.height)
	default:
		return err
	}

	// Anything left over is just as wrong as not enough
	var extra [1]byte
	if n, err := d.r.Read(extra[:]); n != 0 || (err != nil && err != io.EOF) {
		if err != nil && err != io.EOF {
			return err
		}
		rest, _ := io.Copy(io.Discard, d.r)
		return fmt.Errorf("%w: raw: %d bytes for %dx%d image", asset.ErrDimensionMismatch,
			len(d.tmp)+1+int(rest), d.width, d.height)
	}

	return nil
}

func (d *decoder) decode(r io.Reader) (*asset.Image, error) {
	d.r = r

	if d.width < 0 || d.height < 0 {
		return nil, errBadSize
	}
	if d.palette == nil {
		return nil, errNoPalette
	}

	if err := d.readPixels(); err != nil {
		return nil, err
	}

	b := asset.NewBuilder(d.width, d.height)
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			b.Set(x, y, d.palette[d.tmp[y*d.width+x]])
		}
	}

	return b.Image(), nil
}

// Decode reads a width by height raw image from r, mapping each index
// through p.
func Decode(r io.Reader, width, height int, p *palette.Palette) (*asset.Image, error) {
	d := decoder{
		width:   width,
		height:  height,
		palette: p,
	}
	return d.decode(r)
}
