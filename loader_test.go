package ufogfx

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/bodgit/ufogfx/asset"
	"github.com/bodgit/ufogfx/pck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	titles      = "xcom3/ufodata/titles.pcx"
	isobord     = "RAW:xcom3/ufodata/isobord1.dat:3:2:xcom3/ufodata/pal_01.dat"
	newbut      = "PCK:xcom3/ufodata/newbut.pck:xcom3/ufodata/newbut.tab:0:xcom3/ufodata/pal_01.dat"
	stratmap    = "PCKSTRAT:xcom3/ufodata/newbut.pck:xcom3/ufodata/newbut.tab:0:xcom3/ufodata/pal_01.dat"
	shadow      = "PCKSHADOW:xcom3/ufodata/newbut.pck:xcom3/ufodata/newbut.tab:1:xcom3/ufodata/pal_01.dat"
	lofTemplate = "LOFTEMPS:xcom3/ufodata/loftemps.dat:xcom3/ufodata/loftemps.tab:1"
)

var white = color.NRGBA{0xff, 0xff, 0xff, 0xff}

func vgaPalette() []byte {
	b := make([]byte, 0, 768)
	for i := 0; i < 256; i++ {
		b = append(b, byte(i%64), byte(i/4), byte(63-i%64))
	}
	return b
}

// pcxFile returns an uncompressed PCX image where palette index i is {i,0,0}
func pcxFile(width, height int, pixels []byte) []byte {
	b := make([]byte, 128)
	b[0], b[1], b[2], b[3] = 0x0a, 5, 0, 8
	binary.LittleEndian.PutUint16(b[8:], uint16(width-1))
	binary.LittleEndian.PutUint16(b[10:], uint16(height-1))
	b[65] = 1
	binary.LittleEndian.PutUint16(b[66:], uint16(width))
	b = append(b, pixels...)
	b = append(b, 0x0c)
	for i := 0; i < 256; i++ {
		b = append(b, byte(i), 0, 0)
	}
	return b
}

func pngFile() []byte {
	m := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	m.SetNRGBA(1, 0, color.NRGBA{0x10, 0x20, 0x30, 0x80})
	m.SetNRGBA(0, 1, white)

	b := new(bytes.Buffer)
	_ = png.Encode(b, m)
	return b.Bytes()
}

func offsets(o ...uint32) []byte {
	b, _ := asset.OffsetTable(o).MarshalBinary()
	return b
}

func testFS() fstest.MapFS {
	sprites := []byte{
		// Frame 0, 2x3
		1, 2, 3, 0xfd, 0xfe, 1, 4, 0xff,
		// Frame 1, 1x1
		5, 0xff,
	}

	var templates []byte
	for _, v := range []uint32{1, 1, 0x80000000, 2, 2, 0x80000000, 0x40000000} {
		templates = binary.LittleEndian.AppendUint32(templates, v)
	}

	return fstest.MapFS{
		"xcom3/ufodata/pal_01.dat":   &fstest.MapFile{Data: vgaPalette()},
		"xcom3/ufodata/short.dat":    &fstest.MapFile{Data: vgaPalette()[:300]},
		"xcom3/ufodata/titles.pcx":   &fstest.MapFile{Data: pcxFile(2, 1, []byte{7, 9})},
		"xcom3/ufodata/isobord1.dat": &fstest.MapFile{Data: []byte{0, 1, 2, 3, 4, 5}},
		"xcom3/ufodata/newbut.pck":   &fstest.MapFile{Data: sprites},
		"xcom3/ufodata/newbut.tab":   &fstest.MapFile{Data: offsets(0, 8)},
		"xcom3/ufodata/loftemps.dat": &fstest.MapFile{Data: templates},
		"xcom3/ufodata/loftemps.tab": &fstest.MapFile{Data: offsets(0, 12)},
		"test_images/reference.png":  &fstest.MapFile{Data: pngFile()},
		"test_images/broken.png":     &fstest.MapFile{Data: []byte("not a png")},
	}
}

type countingFS struct {
	fs.FS
	opens atomic.Int64
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens.Add(1)
	return c.FS.Open(name)
}

func TestDecode(t *testing.T) {
	l := New(testFS(), nil)

	pal, err := l.Palette("xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)

	tables := []struct {
		locator string
		size    image.Point
		at      image.Point
		want    color.NRGBA
	}{
		{titles, image.Pt(2, 1), image.Pt(1, 0), color.NRGBA{9, 0, 0, 0xff}},
		{"XCOM3/UFODATA/TITLES.PCX", image.Pt(2, 1), image.Pt(0, 0), color.NRGBA{7, 0, 0, 0xff}},
		{isobord, image.Pt(3, 2), image.Pt(2, 1), pal[5]},
		{newbut, image.Pt(2, 3), image.Pt(1, 1), pal[4]},
		{newbut, image.Pt(2, 3), image.Pt(1, 2), color.NRGBA{}},
		{"PCK:xcom3/ufodata/newbut.pck:xcom3/ufodata/newbut.tab:0:xcom3/ufodata/titles.pcx", image.Pt(2, 3), image.Pt(1, 1), color.NRGBA{4, 0, 0, 0xff}},
		{stratmap, image.Pt(8, 8), image.Pt(0, 2), pal[3]},
		{stratmap, image.Pt(8, 8), image.Pt(7, 7), color.NRGBA{}},
		{shadow, image.Pt(1, 1), image.Pt(0, 0), color.NRGBA{0, 0, 0, 0x80}},
		{lofTemplate, image.Pt(2, 2), image.Pt(1, 1), white},
		{lofTemplate, image.Pt(2, 2), image.Pt(1, 0), color.NRGBA{}},
		{"test_images/reference.png", image.Pt(2, 2), image.Pt(1, 0), color.NRGBA{0x10, 0x20, 0x30, 0x80}},
		{"TEST_IMAGES/REFERENCE.PNG", image.Pt(2, 2), image.Pt(0, 1), white},
	}

	for _, table := range tables {
		t.Run(table.locator, func(t *testing.T) {
			m, err := l.Decode(table.locator)
			require.NoError(t, err)
			assert.Equal(t, table.size, m.Size())

			rl := m.Lock()
			defer rl.Unlock()
			assert.Equal(t, table.want, rl.Get(table.at))
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tables := []struct {
		name    string
		locator string
		err     error
	}{
		{"empty locator", "", ErrInvalidLocator},
		{"bad arity", "PCK:a.pck:a.tab", ErrInvalidLocator},
		{"missing file", "xcom3/ufodata/missing.pcx", asset.ErrNotFound},
		{"missing palette", "RAW:xcom3/ufodata/isobord1.dat:3:2:xcom3/ufodata/pal_02.dat", asset.ErrNotFound},
		{"short palette", "RAW:xcom3/ufodata/isobord1.dat:3:2:xcom3/ufodata/short.dat", asset.ErrTruncated},
		{"raw size", "RAW:xcom3/ufodata/isobord1.dat:4:2:xcom3/ufodata/pal_01.dat", asset.ErrDimensionMismatch},
		{"huge raw", "RAW:xcom3/ufodata/isobord1.dat:100000:100000:xcom3/ufodata/pal_01.dat", asset.ErrDimensionMismatch},
		{"frame index", "PCK:xcom3/ufodata/newbut.pck:xcom3/ufodata/newbut.tab:2:xcom3/ufodata/pal_01.dat", asset.ErrIndexOutOfRange},
		{"missing table", "PCK:xcom3/ufodata/newbut.pck:xcom3/ufodata/newbut.tbl:0:xcom3/ufodata/pal_01.dat", asset.ErrNotFound},
		{"table as data", "LOFTEMPS:xcom3/ufodata/loftemps.dat:xcom3/ufodata/pal_01.dat:0", asset.ErrMalformed},
		{"template index", "LOFTEMPS:xcom3/ufodata/loftemps.dat:xcom3/ufodata/loftemps.tab:2", asset.ErrIndexOutOfRange},
		{"broken image", "test_images/broken.png", asset.ErrMalformed},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			m, err := New(testFS(), nil).Decode(table.locator)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, table.err)
		})
	}
}

func TestLoad(t *testing.T) {
	buf := new(bytes.Buffer)
	l := New(testFS(), slog.New(slog.NewTextHandler(buf, nil)))

	assert.NotNil(t, l.Load(titles))
	assert.NotNil(t, l.LoadImage(titles))
	assert.Empty(t, buf.String())

	assert.Nil(t, l.Load("xcom3/ufodata/missing.pcx"))
	assert.Contains(t, buf.String(), "could not load image")
	assert.Contains(t, buf.String(), "xcom3/ufodata/missing.pcx")
	assert.Contains(t, buf.String(), "WARN")

	buf.Reset()
	assert.Nil(t, l.LoadImage("NOPE"))
	assert.Contains(t, buf.String(), "invalid locator")
}

func TestParseErrorDoesNoIO(t *testing.T) {
	fsys := &countingFS{FS: testFS()}
	l := New(fsys, nil)

	for _, locator := range []string{"", "PCK:a", "RAW:../a.dat:1:1:p.dat", "LOFTEMPS:a.dat:a.tab:-1"} {
		_, err := l.Decode(locator)
		assert.ErrorIs(t, err, ErrInvalidLocator)
	}
	assert.Zero(t, fsys.opens.Load())

	_, err := l.Decode(titles)
	require.NoError(t, err)
	assert.NotZero(t, fsys.opens.Load())
}

func TestCache(t *testing.T) {
	l := New(testFS(), nil)

	for _, locator := range []string{titles, isobord, newbut, stratmap, shadow, lofTemplate} {
		a, err := l.Decode(locator)
		require.NoError(t, err)
		b, err := l.Decode(locator)
		require.NoError(t, err)
		assert.Same(t, a, b, locator)
	}
	assert.Equal(t, 6, l.Cached())
}

func TestWithoutCache(t *testing.T) {
	l := New(testFS(), nil, WithoutCache())

	for _, locator := range []string{titles, isobord, newbut, stratmap, shadow, lofTemplate} {
		a, err := l.Decode(locator)
		require.NoError(t, err)
		b, err := l.Decode(locator)
		require.NoError(t, err)
		assert.NotSame(t, a, b, locator)
		assert.NoError(t, asset.Compare(a, b), locator)
		assert.Equal(t, a.Pix(), b.Pix(), locator)
	}
	assert.Zero(t, l.Cached())
}

func TestCacheConcurrent(t *testing.T) {
	l := New(testFS(), nil)

	const n = 16
	images := make([]*asset.Image, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			images[i] = l.Load(newbut)
		}(i)
	}
	wg.Wait()

	require.NotNil(t, images[0])
	for _, m := range images[1:] {
		assert.Same(t, images[0], m)
	}
	assert.Equal(t, 1, l.Cached())
}

func TestFailuresNotCached(t *testing.T) {
	fsys := testFS()
	l := New(fsys, nil)

	const locator = "RAW:xcom3/ufodata/isobord2.dat:3:2:xcom3/ufodata/pal_02.dat"

	_, err := l.Decode(locator)
	assert.ErrorIs(t, err, asset.ErrNotFound)
	assert.Zero(t, l.Cached())

	fsys["xcom3/ufodata/pal_02.dat"] = fsys["xcom3/ufodata/pal_01.dat"]
	_, err = l.Decode(locator)
	assert.ErrorIs(t, err, asset.ErrNotFound)

	fsys["xcom3/ufodata/isobord2.dat"] = fsys["xcom3/ufodata/isobord1.dat"]
	m, err := l.Decode(locator)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 2), m.Size())
	assert.Equal(t, 1, l.Cached())
}

func TestPaletteShared(t *testing.T) {
	l := New(testFS(), nil)

	a, err := l.Palette("xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)
	b, err := l.Palette("xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = l.Palette("xcom3/ufodata/short.dat")
	assert.ErrorIs(t, err, asset.ErrTruncated)
}

func TestPaletteIsCopy(t *testing.T) {
	l := New(testFS(), nil, WithoutCache())

	want, err := l.Decode(isobord)
	require.NoError(t, err)

	p, err := l.Palette("xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)
	p[5].R ^= 0xff

	got, err := l.Decode(isobord)
	require.NoError(t, err)
	assert.NoError(t, asset.Compare(got, want))

	again, err := l.Palette("xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)
	assert.NotEqual(t, p, again)
}

func TestDecodeEncodedSprite(t *testing.T) {
	fsys := testFS()
	l := New(fsys, nil)

	p, err := l.Palette("xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)

	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(0, 0, p[10])
	src.SetNRGBA(2, 1, p[20])

	b := new(bytes.Buffer)
	require.NoError(t, pck.Encode(b, src, &p))

	fsys["sprite.pck"] = &fstest.MapFile{Data: b.Bytes()}
	fsys["sprite.tab"] = &fstest.MapFile{Data: offsets(0)}

	m, err := l.Decode("PCK:sprite.pck:sprite.tab:0:xcom3/ufodata/pal_01.dat")
	require.NoError(t, err)
	assert.NoError(t, asset.Compare(m, asset.FromImage(src)))
}
