package asset

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
)

const bytesPerPixel = 4

// Image is the canonical decoded image. It has no exported mutators; pixels
// are written through a Builder and the image is immutable once published.
type Image struct {
	mu     sync.RWMutex
	width  int
	height int
	pix    []uint8
}

// Size returns the width and height of the image.
func (m *Image) Size() image.Point {
	return image.Pt(m.width, m.height)
}

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

// At implements image.Image. Each call takes the read lock; use Lock for
// bulk access.
func (m *Image) At(x, y int) color.Color {
	l := m.Lock()
	defer l.Unlock()
	if !(image.Point{x, y}.In(m.Bounds())) {
		return color.NRGBA{}
	}
	return l.Get(image.Pt(x, y))
}

// Pix returns a copy of the raw pixel buffer.
func (m *Image) Pix() []uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]uint8(nil), m.pix...)
}

// Lock acquires a read lock on the image. The caller must call Unlock on the
// returned ReadLock when done.
func (m *Image) Lock() *ReadLock {
	m.mu.RLock()
	return &ReadLock{m: m}
}

// ReadLock is a scoped read-only view of an Image.
type ReadLock struct {
	m *Image
}

// Get returns the pixel at p. p must be within the image bounds.
func (l *ReadLock) Get(p image.Point) color.NRGBA {
	i := (p.Y*l.m.width + p.X) * bytesPerPixel
	s := l.m.pix[i : i+bytesPerPixel : i+bytesPerPixel]
	return color.NRGBA{s[0], s[1], s[2], s[3]}
}

// Unlock releases the read lock.
func (l *ReadLock) Unlock() {
	l.m.mu.RUnlock()
}

// Builder fills a new Image. The image stays write locked, so readers block,
// until Image is called.
type Builder struct {
	m *Image
}

// NewBuilder returns a Builder for a fully transparent image of the given
// size.
func NewBuilder(width, height int) *Builder {
	if width < 0 || height < 0 {
		panic("asset: negative image size")
	}
	m := &Image{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*bytesPerPixel),
	}
	m.mu.Lock()
	return &Builder{m: m}
}

// Set writes the pixel at (x, y). Writes outside the image are ignored.
func (b *Builder) Set(x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= b.m.width || y >= b.m.height {
		return
	}
	i := (y*b.m.width + x) * bytesPerPixel
	copy(b.m.pix[i:i+bytesPerPixel], []uint8{c.R, c.G, c.B, c.A})
}

// Image publishes the image and releases the write lock. The Builder must
// not be used afterwards.
func (b *Builder) Image() *Image {
	m := b.m
	b.m = nil
	m.mu.Unlock()
	return m
}

// FromImage converts any image into canonical form, moving its top-left
// corner to the origin.
func FromImage(src image.Image) *Image {
	r := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)

	b := NewBuilder(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		copy(b.m.pix[y*r.Dx()*bytesPerPixel:], dst.Pix[y*dst.Stride:y*dst.Stride+r.Dx()*bytesPerPixel])
	}
	return b.Image()
}

// A MismatchError reports the first pixel that differs between two images.
type MismatchError struct {
	At        image.Point
	Got, Want color.NRGBA
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("image mismatch at {%d,%d} (RGBA img {%d,%d,%d,%d} != RGBA ref {%d,%d,%d,%d})",
		e.At.X, e.At.Y,
		e.Got.R, e.Got.G, e.Got.B, e.Got.A,
		e.Want.R, e.Want.G, e.Want.B, e.Want.A)
}

// Compare checks got against want pixel by pixel. It returns nil if they are
// identical, an error wrapping ErrDimensionMismatch if the sizes differ, or a
// *MismatchError for the first differing pixel in row-major order.
func Compare(got, want *Image) error {
	if got.Size() != want.Size() {
		return fmt.Errorf("%w: size %v doesn't match reference %v", ErrDimensionMismatch, got.Size(), want.Size())
	}

	gl := got.Lock()
	defer gl.Unlock()
	if got != want {
		wl := want.Lock()
		defer wl.Unlock()
	}

	for i := 0; i < len(got.pix); i += bytesPerPixel {
		if got.pix[i] != want.pix[i] || got.pix[i+1] != want.pix[i+1] ||
			got.pix[i+2] != want.pix[i+2] || got.pix[i+3] != want.pix[i+3] {
			p := image.Pt(i/bytesPerPixel%got.width, i/bytesPerPixel/got.width)
			return &MismatchError{
				At:   p,
				Got:  color.NRGBA{got.pix[i], got.pix[i+1], got.pix[i+2], got.pix[i+3]},
				Want: color.NRGBA{want.pix[i], want.pix[i+1], want.pix[i+2], want.pix[i+3]},
			}
		}
	}
	return nil
}
