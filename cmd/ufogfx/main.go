package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bodgit/ufogfx"
	"github.com/bodgit/ufogfx/asset"
	"github.com/bodgit/ufogfx/palette"
	"github.com/bodgit/ufogfx/pck"
	"github.com/bodgit/ufogfx/raw"
	"github.com/urfave/cli/v2"
	_ "golang.org/x/image/bmp"
)

const defaultDB = "ufogfx.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newLoader(c *cli.Context) *ufogfx.Loader {
	return ufogfx.New(os.DirFS(c.String("data")), newLogger(c))
}

func requireArgs(c *cli.Context, n int) {
	if c.NArg() < n {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
}

func export(c *cli.Context) error {
	requireArgs(c, 2)

	m, err := newLoader(c).Decode(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	if err := ufogfx.Export(f, m, f.Name()); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func info(c *cli.Context) error {
	requireArgs(c, 1)

	loc, err := ufogfx.Parse(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	m, err := newLoader(c).Decode(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	size := m.Size()
	fmt.Fprintf(c.App.Writer, "Locator: %s\nFormat:  %s\nSize:    %dx%d\nSHA-1:   %s\n", loc, loc.Tag(), size.X, size.Y, ufogfx.Hash(m))

	return nil
}

func importXML(c *cli.Context) error {
	requireArgs(c, 1)

	db, err := ufogfx.NewFixtureDB(c.String("db"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	if err := db.ImportXML(c.Args().First()); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func verify(c *cli.Context) error {
	db, err := ufogfx.NewFixtureDB(c.String("db"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	results, err := newLoader(c).Verify(ctx, db, c.Int("workers"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	failed := 0
	for _, r := range results {
		if r.Passed() {
			if c.Bool("verbose") {
				fmt.Fprintf(c.App.Writer, "ok   %s\n", r.Fixture.Locator)
			}
			continue
		}
		failed++
		fmt.Fprintf(c.App.Writer, "FAIL %s: %v\n", r.Fixture.Locator, r.Err)
	}
	fmt.Fprintf(c.App.Writer, "%d of %d fixtures passed\n", len(results)-failed, len(results))

	if failed > 0 {
		return cli.Exit("", 1)
	}

	return nil
}

func pack(c *cli.Context) error {
	requireArgs(c, 3)

	in, err := os.Open(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer in.Close()

	m, _, err := image.Decode(in)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if c.Bool("pck") {
		return packSprite(c, m)
	}

	data, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer data.Close()

	p, err := raw.Encode(data, m)
	if err != nil {
		return cli.Exit(err, 1)
	}

	pal, err := os.Create(c.Args().Get(2))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer pal.Close()

	if err := palette.Encode(pal, p); err != nil {
		return cli.Exit(err, 1)
	}

	size := m.Bounds().Size()
	fmt.Fprintf(c.App.Writer, "RAW:%s:%d:%d:%s\n", filepath.ToSlash(data.Name()), size.X, size.Y, filepath.ToSlash(pal.Name()))

	return nil
}

// packSprite writes m as a single frame sprite sheet mapped onto an existing
// palette, with the offset table alongside the sheet.
func packSprite(c *cli.Context, m image.Image) error {
	name := c.Args().Get(2)
	p, err := palette.NewCache(os.DirFS(filepath.Dir(name))).Get(filepath.Base(name))
	if err != nil {
		return cli.Exit(err, 1)
	}

	sheet, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer sheet.Close()

	if err := pck.Encode(sheet, m, p); err != nil {
		return cli.Exit(err, 1)
	}

	b, err := asset.OffsetTable{0}.MarshalBinary()
	if err != nil {
		return cli.Exit(err, 1)
	}

	tab := strings.TrimSuffix(sheet.Name(), filepath.Ext(sheet.Name())) + ".tab"
	if err := os.WriteFile(tab, b, 0o644); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(c.App.Writer, "PCK:%s:%s:0:%s\n", filepath.ToSlash(sheet.Name()), filepath.ToSlash(tab), filepath.ToSlash(name))

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "ufogfx"
	app.Usage = "X-COM Apocalypse graphics decoding utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			EnvVars: []string{"UFOGFX_DATA"},
			Value:   cwd,
			Usage:   "path to game data",
		},
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"UFOGFX_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to fixture database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "export",
			Usage:     "Decode an image and write it as PNG or BMP",
			ArgsUsage: "LOCATOR FILE",
			Action:    export,
		},
		{
			Name:      "info",
			Usage:     "Decode an image and print its details",
			ArgsUsage: "LOCATOR",
			Action:    info,
		},
		{
			Name:      "import",
			Usage:     "Import XML manifest and reference images",
			ArgsUsage: "FILE",
			Action:    importXML,
		},
		{
			Name:  "verify",
			Usage: "Decode every fixture and compare with its reference",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "workers",
					Aliases: []string{"j"},
					Value:   ufogfx.DefaultWorkers,
					Usage:   "number of concurrent decodes",
				},
			},
			Action: verify,
		},
		{
			Name:      "pack",
			Usage:     "Convert an image to a raw bitmap and VGA palette, or a sprite sheet using PALETTE",
			ArgsUsage: "IMAGE DATA PALETTE",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "pck",
					Usage: "write DATA as a sprite sheet and its .tab, mapped onto the existing PALETTE",
				},
			},
			Action: pack,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
