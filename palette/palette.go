/*
Package palette implements the 256 colour palettes used by the indexed image
formats.

Three on-disk layouts are recognised by Decode. The game's own .dat and .pal
files are 768 bytes; 256 red, green and blue triplets holding 6-bit VGA DAC
values which are expanded to 8 bits. A 1024 byte file holds 256 red, green,
blue and alpha quads with 8-bit values. A Microsoft RIFF palette ("RIFF"
form type "PAL ") holds a version, an entry count and 4 byte entries.

PCX images carry their own 8-bit palette in a 769 byte trailer which is
read by DecodePCX.
*/
package palette

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"

	"github.com/bodgit/ufogfx/asset"
	"golang.org/x/image/riff"
)

const (
	// NumColors is the number of entries in every palette
	NumColors = 256

	vgaBytes  = NumColors * 3
	rgbaBytes = NumColors * 4

	pcxMagic   = 0x0c
	pcxTrailer = vgaBytes + 1

	riffVersion = 0x0300
)

var (
	riffMagic = []byte("RIFF")
	palType   = riff.FourCC{'P', 'A', 'L', ' '}
	dataType  = riff.FourCC{'d', 'a', 't', 'a'}
)

// Palette is an immutable table of 256 colours.
type Palette [NumColors]color.NRGBA

// Colors returns the palette as a color.Palette
func (p *Palette) Colors() color.Palette {
	c := make(color.Palette, NumColors)
	for i := range p {
		c[i] = p[i]
	}
	return c
}

// expand converts a 6-bit VGA DAC value to 8 bits so that 0x3f maps to 0xff
func expand(c byte) byte {
	c &= 0x3f
	return c<<2 | c>>4
}

// Decode reads a palette from r.
func Decode(r io.Reader) (*Palette, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(b, riffMagic) {
		return decodeRIFF(bytes.NewReader(b))
	}

	p := new(Palette)
	switch {
	case len(b) == rgbaBytes:
		for i := range p {
			p[i] = color.NRGBA{b[i*4], b[i*4+1], b[i*4+2], b[i*4+3]}
		}
	case len(b) >= vgaBytes:
		for i := range p {
			p[i] = color.NRGBA{expand(b[i*3]), expand(b[i*3+1]), expand(b[i*3+2]), 0xff}
		}
	default:
		return nil, fmt.Errorf("%w: palette has %d of %d entries", asset.ErrTruncated, len(b)/3, NumColors)
	}

	return p, nil
}

func decodeRIFF(r io.Reader) (*Palette, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open RIFF stream: %v", asset.ErrMalformed, err)
	}
	if formType != palType {
		return nil, fmt.Errorf("%w: unsupported RIFF content type: %s", asset.ErrMalformed, string(formType[:]))
	}

	for {
		id, _, data, err := rd.Next()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: RIFF palette has no data chunk", asset.ErrTruncated)
			}
			return nil, fmt.Errorf("%w: could not read RIFF chunk: %v", asset.ErrMalformed, err)
		}
		if id != dataType {
			continue
		}
		return readRIFFData(data)
	}
}

func readRIFFData(r io.Reader) (*Palette, error) {
	var hdr struct {
		Version    uint16
		NumEntries uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: could not read RIFF palette header", asset.ErrTruncated)
	}
	if hdr.Version != riffVersion {
		return nil, fmt.Errorf("%w: unsupported RIFF palette version %#04x", asset.ErrMalformed, hdr.Version)
	}
	if hdr.NumEntries < NumColors {
		return nil, fmt.Errorf("%w: palette has %d of %d entries", asset.ErrTruncated, hdr.NumEntries, NumColors)
	}

	p := new(Palette)
	var entry [4]byte
	for i := range p {
		if _, err := io.ReadFull(r, entry[:]); err != nil {
			return nil, fmt.Errorf("%w: palette has %d of %d entries", asset.ErrTruncated, i, NumColors)
		}
		// Fourth byte is PALETTEENTRY.peFlags, not alpha
		p[i] = color.NRGBA{entry[0], entry[1], entry[2], 0xff}
	}

	return p, nil
}

// DecodePCX reads the 256 colour palette from the trailer of a PCX image.
func DecodePCX(b []byte) (*Palette, error) {
	if len(b) < pcxTrailer {
		return nil, fmt.Errorf("%w: too short for a PCX palette", asset.ErrTruncated)
	}

	t := b[len(b)-pcxTrailer:]
	if t[0] != pcxMagic {
		return nil, fmt.Errorf("%w: missing PCX extended palette", asset.ErrMalformed)
	}

	p := new(Palette)
	for i := range p {
		p[i] = color.NRGBA{t[1+i*3], t[2+i*3], t[3+i*3], 0xff}
	}
	return p, nil
}

// Encode writes p to w in the 768 byte VGA form. Precision below 6 bits and
// alpha are lost.
func Encode(w io.Writer, p *Palette) error {
	var b [vgaBytes]byte
	for i, c := range p {
		b[i*3] = c.R >> 2
		b[i*3+1] = c.G >> 2
		b[i*3+2] = c.B >> 2
	}
	_, err := w.Write(b[:])
	return err
}
