package raw

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/bodgit/ufogfx/palette"
	"github.com/ericpauley/go-quantize/quantize"
)

type encoder struct {
	w io.Writer
}

func (e *encoder) encode(m *image.Paletted) error {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := m.PixOffset(b.Min.X, y)
		if _, err := e.w.Write(m.Pix[i : i+b.Dx()]); err != nil {
			return err
		}
	}
	return nil
}

func toPalette(cp color.Palette) *palette.Palette {
	p := new(palette.Palette)
	for i, c := range cp {
		p[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
	}
	return p
}

// Encode writes the Image m to w in raw format and returns the palette the
// indices refer to. Images with more than 256 colors are quantized first.
func Encode(w io.Writer, m image.Image) (*palette.Palette, error) {
	b := m.Bounds()
	if b.Empty() {
		return nil, errors.New("raw: image is empty")
	}

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok {
			pm = image.NewPaletted(b, cp)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					pm.Set(x, y, cp.Convert(m.At(x, y)))
				}
			}
		}
	}

	if pm == nil || len(pm.Palette) > maxColors {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, maxColors), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	e := encoder{w: w}
	if err := e.encode(pm); err != nil {
		return nil, err
	}

	return toPalette(pm.Palette), nil
}
