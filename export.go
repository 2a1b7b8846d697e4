package ufogfx

import (
	"errors"
	"image"
	"image/draw"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// ErrUnknownFormat is returned by Export for an unsupported file extension.
var ErrUnknownFormat = errors.New("unknown image format")

// Export encodes m to w in the format implied by the extension of name,
// either .png or .bmp.
func Export(w io.Writer, m image.Image, name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return png.Encode(w, m)
	case ".bmp":
		// Only *image.NRGBA and *image.RGBA keep their alpha channel
		n := image.NewNRGBA(m.Bounds())
		draw.Draw(n, n.Bounds(), m, m.Bounds().Min, draw.Src)
		return bmp.Encode(w, n)
	default:
		return ErrUnknownFormat
	}
}
