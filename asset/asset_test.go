package asset

import (
	"image"
	"image/color"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.NRGBA{0xff, 0x00, 0x00, 0xff}
	ghost = color.NRGBA{0x10, 0x20, 0x30, 0x80}
)

func TestBuilder(t *testing.T) {
	b := NewBuilder(3, 2)
	b.Set(0, 0, red)
	b.Set(2, 1, ghost)
	b.Set(3, 0, red)
	b.Set(-1, 1, red)
	m := b.Image()

	assert.Equal(t, image.Pt(3, 2), m.Size())
	assert.Equal(t, image.Rect(0, 0, 3, 2), m.Bounds())
	assert.Equal(t, color.NRGBAModel, m.ColorModel())
	assert.Len(t, m.Pix(), 3*2*bytesPerPixel)

	l := m.Lock()
	assert.Equal(t, red, l.Get(image.Pt(0, 0)))
	assert.Equal(t, ghost, l.Get(image.Pt(2, 1)))
	assert.Equal(t, color.NRGBA{}, l.Get(image.Pt(1, 0)))
	l.Unlock()

	assert.Equal(t, color.NRGBA{}, m.At(5, 5))
	assert.Equal(t, ghost, m.At(2, 1))
}

func TestPixIsCopy(t *testing.T) {
	b := NewBuilder(1, 1)
	b.Set(0, 0, red)
	m := b.Image()

	pix := m.Pix()
	pix[0] = 0
	assert.Equal(t, red, m.At(0, 0))
}

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 12, 12))
	src.SetNRGBA(10, 10, red)
	src.SetNRGBA(11, 11, ghost)

	m := FromImage(src)
	assert.Equal(t, image.Pt(2, 2), m.Size())
	assert.Equal(t, red, m.At(0, 0))
	assert.Equal(t, ghost, m.At(1, 1))
	assert.Equal(t, color.NRGBA{}, m.At(1, 0))
}

func TestCompare(t *testing.T) {
	build := func(c color.NRGBA) *Image {
		b := NewBuilder(2, 2)
		b.Set(1, 1, c)
		return b.Image()
	}

	a := build(red)
	assert.NoError(t, Compare(a, a))
	assert.NoError(t, Compare(a, build(red)))

	err := Compare(a, build(ghost))
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, image.Pt(1, 1), mismatch.At)
	assert.Equal(t, red, mismatch.Got)
	assert.Equal(t, ghost, mismatch.Want)
	assert.Equal(t, "image mismatch at {1,1} (RGBA img {255,0,0,255} != RGBA ref {16,32,48,128})", err.Error())

	assert.ErrorIs(t, Compare(a, NewBuilder(2, 3).Image()), ErrDimensionMismatch)
}

func TestOffsetTable(t *testing.T) {
	tab := OffsetTable{0, 10, 10, 25}

	b, err := tab.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 10, 0, 0, 0, 10, 0, 0, 0, 25, 0, 0, 0}, b)

	var got OffsetTable
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, tab, got)
	assert.Equal(t, 4, got.Len())

	assert.ErrorIs(t, got.UnmarshalBinary(b[:7]), ErrTruncated)

	tables := []struct {
		name       string
		index      int
		size       int
		start, end int
		err        error
	}{
		{"first", 0, 30, 0, 10, nil},
		{"empty entry", 1, 30, 10, 10, nil},
		{"last runs to end", 3, 30, 25, 30, nil},
		{"negative", -1, 30, 0, 0, ErrIndexOutOfRange},
		{"past end of table", 4, 30, 0, 0, ErrIndexOutOfRange},
		{"next offset beyond data", 2, 20, 0, 0, ErrMalformed},
		{"offset beyond data", 3, 20, 0, 0, ErrMalformed},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			start, end, err := tab.Span(table.index, table.size)
			if table.err != nil {
				assert.ErrorIs(t, err, table.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, table.start, start)
			assert.Equal(t, table.end, end)
		})
	}

	_, _, err = OffsetTable{8, 4}.Span(0, 10)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadFile(t *testing.T) {
	fsys := fstest.MapFS{
		"XCOM3/UFODATA/PAL_01.DAT": &fstest.MapFile{Data: []byte("palette")},
		"XCOM3/UFODATA/CITY.TAB":   &fstest.MapFile{Data: []byte{0, 0, 0, 0, 4, 0, 0, 0}},
		"XCOM3/UFODATA/BAD.TAB":    &fstest.MapFile{Data: []byte{0, 0, 0}},
		"base.pcx":                 &fstest.MapFile{Data: []byte("image")},
	}

	b, err := ReadFile(fsys, "base.pcx")
	require.NoError(t, err)
	assert.Equal(t, []byte("image"), b)

	b, err = ReadFile(fsys, "xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)
	assert.Equal(t, []byte("palette"), b)

	_, err = ReadFile(fsys, "xcom3/ufodata/missing.dat")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ReadFile(fsys, "xcom3/tacdata/pal_01.dat")
	assert.ErrorIs(t, err, ErrNotFound)

	tab, err := ReadOffsetTable(fsys, "xcom3/ufodata/city.tab")
	require.NoError(t, err)
	assert.Equal(t, OffsetTable{0, 4}, tab)

	_, err = ReadOffsetTable(fsys, "xcom3/ufodata/bad.tab")
	assert.ErrorIs(t, err, ErrTruncated)
}
