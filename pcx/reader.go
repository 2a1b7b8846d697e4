package pcx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/bodgit/ufogfx/asset"
	"github.com/bodgit/ufogfx/palette"
)

var (
	errNotPCX      = fmt.Errorf("%w: pcx: not a PCX file", asset.ErrMalformed)
	errEncoding    = fmt.Errorf("%w: pcx: unsupported encoding", asset.ErrMalformed)
	errDepth       = fmt.Errorf("%w: pcx: only 8 bit single plane images are supported", asset.ErrMalformed)
	errNotEnough   = fmt.Errorf("%w: pcx: not enough image data", asset.ErrTruncated)
	errBadGeometry = fmt.Errorf("%w: pcx: bytes per line shorter than image width", asset.ErrDimensionMismatch)
)

type header struct {
	Manufacturer uint8
	Version      uint8
	Encoding     uint8
	BitsPerPixel uint8
	XMin, YMin   uint16
	XMax, YMax   uint16
	HDPI, VDPI   uint16
	Colormap     [48]byte
	Reserved     uint8
	Planes       uint8
	BytesPerLine uint16
	_            [60]byte
}

type decoder struct {
	b []byte
	r *bytes.Reader

	hdr           header
	width, height int

	palette *palette.Palette

	// A run may continue onto the next scanline
	run int
	val byte
}

func (d *decoder) readHeader() error {
	if len(d.b) < headerSize {
		return errNotEnough
	}
	if err := binary.Read(d.r, binary.LittleEndian, &d.hdr); err != nil {
		return err
	}

	if d.hdr.Manufacturer != magic {
		return errNotPCX
	}
	if d.hdr.Encoding != encodingNone && d.hdr.Encoding != encodingRLE {
		return errEncoding
	}
	if d.hdr.BitsPerPixel != 8 || d.hdr.Planes != 1 {
		return errDepth
	}
	if d.hdr.XMax < d.hdr.XMin || d.hdr.YMax < d.hdr.YMin {
		return fmt.Errorf("%w: pcx: invalid window (%d,%d)-(%d,%d)", asset.ErrDimensionMismatch,
			d.hdr.XMin, d.hdr.YMin, d.hdr.XMax, d.hdr.YMax)
	}

	d.width = int(d.hdr.XMax) - int(d.hdr.XMin) + 1
	d.height = int(d.hdr.YMax) - int(d.hdr.YMin) + 1

	if int(d.hdr.BytesPerLine) < d.width {
		return errBadGeometry
	}

	return nil
}

func (d *decoder) readScanline(out []byte) error {
	if d.hdr.Encoding == encodingNone {
		if _, err := io.ReadFull(d.r, out); err != nil {
			return errNotEnough
		}
		return nil
	}

	for off := 0; off < len(out); {
		if d.run == 0 {
			val, err := d.r.ReadByte()
			if err != nil {
				return errNotEnough
			}
			d.run = 1
			if val&rleMask == rleMask {
				d.run = int(val & rleCount)
				if val, err = d.r.ReadByte(); err != nil {
					return errNotEnough
				}
			}
			d.val = val
		}
		n := d.run
		if n > len(out)-off {
			n = len(out) - off
		}
		for i := 0; i < n; i++ {
			out[off] = d.val
			off++
		}
		d.run -= n
	}
	return nil
}

func (d *decoder) decode(configOnly bool) (*asset.Image, error) {
	d.r = bytes.NewReader(d.b)

	if err := d.readHeader(); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errNotEnough
		}
		return nil, err
	}

	if configOnly {
		return nil, nil
	}

	var err error
	if d.palette, err = palette.DecodePCX(d.b[headerSize:]); err != nil {
		return nil, err
	}

	// Pixel data may not run into the palette trailer
	d.r = bytes.NewReader(d.b[headerSize : len(d.b)-palette.NumColors*3-1])

	// A run byte can't expand to more than rleCount pixels
	if d.height*int(d.hdr.BytesPerLine) > d.r.Len()*rleCount {
		return nil, errNotEnough
	}

	b := asset.NewBuilder(d.width, d.height)
	line := make([]byte, d.hdr.BytesPerLine)
	for y := 0; y < d.height; y++ {
		if err := d.readScanline(line); err != nil {
			return nil, err
		}
		for x := 0; x < d.width; x++ {
			b.Set(x, y, d.palette[line[x]])
		}
	}

	return b.Image(), nil
}

// Decode reads a PCX image from r and returns it in canonical form.
func Decode(r io.Reader) (*asset.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	d := decoder{b: b}
	return d.decode(false)
}

// DecodeConfig returns the dimensions of a PCX image without decoding the
// entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return image.Config{}, errNotEnough
	}

	d := decoder{b: hdr[:]}
	if _, err := d.decode(true); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      d.width,
		Height:     d.height,
	}, nil
}
