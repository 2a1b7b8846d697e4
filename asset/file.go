package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// ReadFile reads the named file from fsys. The original game data is stored
// in upper case on CD while locators are written in lower case, so if the
// exact name doesn't exist each path element is matched case-insensitively.
// A missing file returns an error wrapping ErrNotFound.
func ReadFile(fsys fs.FS, name string) ([]byte, error) {
	b, err := fs.ReadFile(fsys, name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	folded, ok := foldPath(fsys, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	b, err = fs.ReadFile(fsys, folded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return b, nil
}

func foldPath(fsys fs.FS, name string) (string, bool) {
	dir := "."
	for _, elem := range strings.Split(name, "/") {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return "", false
		}

		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), elem) {
				dir = path.Join(dir, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return dir, true
}

// ReadOffsetTable reads and decodes the named .tab file.
func ReadOffsetTable(fsys fs.FS, name string) (OffsetTable, error) {
	b, err := ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	var t OffsetTable
	if err := t.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}
