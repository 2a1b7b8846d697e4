/*
Package ufogfx is a library for decoding the graphics assets of X-COM
Apocalypse into a canonical RGBA image.

Every asset is named by a single locator string, for example:

	xcom3/ufodata/titles.pcx
	RAW:xcom3/ufodata/isobord1.dat:640:128:xcom3/ufodata/pal_01.dat
	PCK:xcom3/ufodata/newbut.pck:xcom3/ufodata/newbut.tab:30:xcom3/ufodata/base.pcx
	PCKSTRAT:xcom3/ufodata/stratmap.pck:xcom3/ufodata/stratmap.tab:32:xcom3/ufodata/pal_01.dat
	PCKSHADOW:xcom3/ufodata/shadow.pck:xcom3/ufodata/shadow.tab:5:xcom3/ufodata/pal_01.dat
	LOFTEMPS:xcom3/ufodata/loftemps.dat:xcom3/ufodata/loftemps.tab:113
	test_images/ufodata_titles.png

Bare paths ending in .png or .bmp are decoded with the standard image
decoders, which is how reference images are loaded for comparison.

Paths are relative to the filesystem given to New and are matched
case-insensitively if there is no exact match.
*/
package ufogfx

import (
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/bodgit/ufogfx/asset"
	"github.com/bodgit/ufogfx/palette"
	"golang.org/x/sync/singleflight"
)

// Loader decodes images by locator. It is safe for concurrent use.
type Loader struct {
	fsys     fs.FS
	logger   *slog.Logger
	palettes *palette.Cache

	cache  bool
	mu     sync.RWMutex
	images map[string]*asset.Image
	group  singleflight.Group
}

// Option configures a Loader
type Option func(*Loader)

// WithoutCache disables memoization of decoded images so every call decodes
// from scratch. Palettes are still cached.
func WithoutCache() Option {
	return func(l *Loader) {
		l.cache = false
	}
}

// New returns a Loader reading game data from fsys. A nil logger discards
// all output.
func New(fsys fs.FS, logger *slog.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	l := &Loader{
		fsys:     fsys,
		logger:   logger,
		palettes: palette.NewCache(fsys),
		cache:    true,
		images:   make(map[string]*asset.Image),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Palette returns a copy of the palette stored at name. The decoders share
// the cached palette so changes to the copy don't affect them.
func (l *Loader) Palette(name string) (palette.Palette, error) {
	p, err := l.palettes.Get(name)
	if err != nil {
		return palette.Palette{}, err
	}
	return *p, nil
}

// Load returns the image named by locator or nil if it can't be loaded, in
// which case the reason is logged as a warning.
func (l *Loader) Load(locator string) *asset.Image {
	m, err := l.Decode(locator)
	if err != nil {
		l.logger.Warn("could not load image", "locator", locator, "error", err)
		return nil
	}
	return m
}

// LoadImage is the same as Load.
func (l *Loader) LoadImage(locator string) *asset.Image {
	return l.Load(locator)
}

// Decode returns the image named by locator. Errors from Parse are returned
// before any file is read.
func (l *Loader) Decode(locator string) (*asset.Image, error) {
	loc, err := Parse(locator)
	if err != nil {
		return nil, err
	}

	if !l.cache {
		return l.decode(loc)
	}

	l.mu.RLock()
	m, ok := l.images[locator]
	l.mu.RUnlock()
	if ok {
		l.logger.Debug("cache hit", "locator", locator)
		return m, nil
	}

	v, err, shared := l.group.Do(locator, func() (interface{}, error) {
		l.mu.RLock()
		m, ok := l.images[locator]
		l.mu.RUnlock()
		if ok {
			return m, nil
		}

		m, err := l.decode(loc)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.images[locator] = m
		l.mu.Unlock()

		l.logger.Debug("cache fill", "locator", locator, "size", m.Size())

		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("shared decode", "locator", locator)
	}
	return v.(*asset.Image), nil
}

// Cached returns the number of memoized images
func (l *Loader) Cached() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.images)
}
