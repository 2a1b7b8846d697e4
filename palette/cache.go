package palette

import (
	"bytes"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/bodgit/ufogfx/asset"
	"golang.org/x/sync/singleflight"
)

// Cache loads palettes from a filesystem and keeps them for the lifetime of
// the cache. Repeated requests for the same path return the same *Palette,
// which callers must not modify.
type Cache struct {
	fsys fs.FS

	mu       sync.RWMutex
	palettes map[string]*Palette
	group    singleflight.Group
}

// NewCache returns an empty cache reading from fsys
func NewCache(fsys fs.FS) *Cache {
	return &Cache{
		fsys:     fsys,
		palettes: make(map[string]*Palette),
	}
}

// Get returns the palette stored at name, loading it on first use. Paths
// ending in .pcx use the palette embedded in the image. Failures are not
// cached.
func (c *Cache) Get(name string) (*Palette, error) {
	c.mu.RLock()
	p, ok := c.palettes[name]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := c.group.Do(name, func() (interface{}, error) {
		// Another caller may have finished the fill since the check above
		c.mu.RLock()
		p, ok := c.palettes[name]
		c.mu.RUnlock()
		if ok {
			return p, nil
		}

		p, err := load(c.fsys, name)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.palettes[name] = p
		c.mu.Unlock()

		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Palette), nil
}

// Len returns the number of cached palettes
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.palettes)
}

func load(fsys fs.FS, name string) (*Palette, error) {
	b, err := asset.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(path.Ext(name), ".pcx") {
		return DecodePCX(b)
	}
	return Decode(bytes.NewReader(b))
}
