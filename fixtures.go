package ufogfx

import (
	"crypto/sha1"
	"database/sql"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // register reference format
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/ufogfx/asset"
	_ "github.com/mattn/go-sqlite3" // register database driver
	_ "golang.org/x/image/bmp"      // register reference format
)

// FixtureDB stores pairs of locators and reference images used to verify
// the decoders against known good output.
type FixtureDB struct {
	db *sql.DB
}

// Fixture is a locator and the SHA-1 of the file its reference was imported
// from.
type Fixture struct {
	Locator   string
	Reference string
}

// NewFixtureDB opens or creates the fixture database in file.
func NewFixtureDB(file string) (*FixtureDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS reference (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, pixels BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS fixture (id INTEGER PRIMARY KEY NOT NULL, locator TEXT NOT NULL UNIQUE, reference_id INTEGER NOT NULL, FOREIGN KEY(reference_id) REFERENCES reference(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &FixtureDB{
		db: db,
	}, nil
}

type xmlFixtures struct {
	XMLName  xml.Name     `xml:"Fixtures"`
	Fixtures []xmlFixture `xml:"Fixture"`
}

type xmlFixture struct {
	XMLName   xml.Name `xml:"Fixture"`
	Locator   string   `xml:"Locator"`
	Reference string   `xml:"Reference"`
}

// ImportXML replaces the contents of the database with the fixtures listed
// in file. Reference paths are relative to the directory containing file and
// may use either slash.
func (db *FixtureDB) ImportXML(file string) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	var xmlDB xmlFixtures
	if err := xml.Unmarshal(b, &xmlDB); err != nil {
		return err
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec("DELETE FROM fixture"); err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM reference"); err != nil {
		return err
	}

	for _, f := range xmlDB.Fixtures {
		loc, err := Parse(strings.TrimSpace(f.Locator))
		if err != nil {
			return err
		}

		reference, err := addReference(tx, filepath.Join(filepath.Dir(file), filepath.Clean(strings.ReplaceAll(f.Reference, "\\", string(os.PathSeparator)))))
		if err != nil {
			return err
		}

		if _, err = tx.Exec("INSERT OR REPLACE INTO fixture (locator, reference_id) VALUES (?, ?)", loc.String(), reference); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close closes the database.
func (db *FixtureDB) Close() error {
	return db.db.Close()
}

func addReference(tx *sql.Tx, file string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := sha1.New()
	m, _, err := image.Decode(io.TeeReader(f, h))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", file, err)
	}
	sha := fmt.Sprintf("%X", h.Sum(nil))

	var id int64
	switch err := tx.QueryRow("SELECT id FROM reference WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		ref := asset.FromImage(m)
		size := ref.Size()
		pixels := ref.Pix()
		if pixels == nil {
			// A nil blob is bound as NULL
			pixels = []byte{}
		}
		result, err := tx.Exec("INSERT INTO reference (sha1, width, height, pixels) VALUES (?, ?, ?, ?)", sha, size.X, size.Y, pixels)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// Fixtures returns every fixture ordered by locator.
func (db *FixtureDB) Fixtures() ([]Fixture, error) {
	rows, err := db.db.Query("SELECT f.locator, r.sha1 FROM fixture AS f JOIN reference AS r ON f.reference_id = r.id ORDER BY f.locator")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixtures []Fixture
	for rows.Next() {
		var f Fixture
		if err := rows.Scan(&f.Locator, &f.Reference); err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}

	return fixtures, rows.Err()
}

// Reference returns the reference image for locator. An unknown locator
// returns an error wrapping asset.ErrNotFound.
func (db *FixtureDB) Reference(locator string) (*asset.Image, error) {
	var width, height int
	var pixels []byte
	switch err := db.db.QueryRow("SELECT r.width, r.height, r.pixels FROM fixture AS f JOIN reference AS r ON f.reference_id = r.id WHERE f.locator = ?", locator).Scan(&width, &height, &pixels); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: no fixture for %q", asset.ErrNotFound, locator)
	case err != nil:
		return nil, err
	}

	if width < 0 || height < 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("%w: reference for %q has %d bytes for %dx%d image", asset.ErrMalformed, locator, len(pixels), width, height)
	}

	b := asset.NewBuilder(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := pixels[(y*width+x)*4:]
			b.Set(x, y, color.NRGBA{p[0], p[1], p[2], p[3]})
		}
	}

	return b.Image(), nil
}

// Hash returns the SHA-1 of the size and canonical pixels of m. Identical
// decodes have identical hashes.
func Hash(m *asset.Image) string {
	size := m.Size()
	h := sha1.New()
	fmt.Fprintf(h, "%dx%d:", size.X, size.Y)
	h.Write(m.Pix())
	return fmt.Sprintf("%X", h.Sum(nil))
}
