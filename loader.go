package ufogfx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	"github.com/bodgit/ufogfx/asset"
	"github.com/bodgit/ufogfx/loftemps"
	"github.com/bodgit/ufogfx/palette"
	"github.com/bodgit/ufogfx/pck"
	"github.com/bodgit/ufogfx/pcx"
	"github.com/bodgit/ufogfx/raw"
	_ "golang.org/x/image/bmp"
)

type decodeFunc func(*Loader, Locator) (*asset.Image, error)

type spriteFunc func([]byte, asset.OffsetTable, int, *palette.Palette) (*asset.Image, error)

// Parse only returns tags with an entry here
var decoders = [numTags]decodeFunc{
	TagPCX:       (*Loader).decodePCX,
	TagRAW:       (*Loader).decodeRAW,
	TagPCK:       spriteDecoder(pck.Decode),
	TagPCKStrat:  spriteDecoder(pck.DecodeStrat),
	TagPCKShadow: spriteDecoder(pck.DecodeShadow),
	TagLOFTemps:  (*Loader).decodeLOFTemps,
	TagImage:     (*Loader).decodeImage,
}

func (l *Loader) decode(loc Locator) (*asset.Image, error) {
	return decoders[loc.Tag()](l, loc)
}

func (l *Loader) decodePCX(loc Locator) (*asset.Image, error) {
	b, err := asset.ReadFile(l.fsys, loc.file(0))
	if err != nil {
		return nil, err
	}

	m, err := pcx.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.file(0), err)
	}
	return m, nil
}

func (l *Loader) decodeRAW(loc Locator) (*asset.Image, error) {
	p, err := l.palettes.Get(loc.file(3))
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", loc.file(3), err)
	}

	b, err := asset.ReadFile(l.fsys, loc.file(0))
	if err != nil {
		return nil, err
	}

	// Reject before raw allocates width*height bytes
	w, h := loc.number(1), loc.number(2)
	if int64(w)*int64(h) != int64(len(b)) {
		return nil, fmt.Errorf("%s: %w: %d bytes for %dx%d image", loc.file(0), asset.ErrDimensionMismatch, len(b), w, h)
	}

	m, err := raw.Decode(bytes.NewReader(b), w, h, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.file(0), err)
	}
	return m, nil
}

func (l *Loader) readSheet(loc Locator) ([]byte, asset.OffsetTable, error) {
	b, err := asset.ReadFile(l.fsys, loc.file(0))
	if err != nil {
		return nil, nil, err
	}

	tab, err := asset.ReadOffsetTable(l.fsys, loc.file(1))
	if err != nil {
		return nil, nil, err
	}

	return b, tab, nil
}

func spriteDecoder(fn spriteFunc) decodeFunc {
	return func(l *Loader, loc Locator) (*asset.Image, error) {
		p, err := l.palettes.Get(loc.file(3))
		if err != nil {
			return nil, fmt.Errorf("palette %s: %w", loc.file(3), err)
		}

		b, tab, err := l.readSheet(loc)
		if err != nil {
			return nil, err
		}

		m, err := fn(b, tab, loc.number(2), p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", loc.file(0), err)
		}
		return m, nil
	}
}

func (l *Loader) decodeLOFTemps(loc Locator) (*asset.Image, error) {
	b, tab, err := l.readSheet(loc)
	if err != nil {
		return nil, err
	}

	m, err := loftemps.Decode(b, tab, loc.number(2))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.file(0), err)
	}
	return m, nil
}

func (l *Loader) decodeImage(loc Locator) (*asset.Image, error) {
	b, err := asset.ReadFile(l.fsys, loc.file(0))
	if err != nil {
		return nil, err
	}

	m, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", loc.file(0), asset.ErrMalformed, err)
	}
	return asset.FromImage(m), nil
}
