package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/birkland/assetresolv/drivers/bal"
	"github.com/birkland/assetresolv/drivers/fs"
	"github.com/birkland/assetresolv/fspath"
	"github.com/birkland/assetresolv/metadata"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var indexOpts = struct {
	names        string
	extensions   cli.StringSlice
	capabilities cli.StringSlice
	force        bool
}{}

var index = cli.Command{
	Name:  "index",
	Usage: "Create a basic asset library from a directory of files",
	Description: `Walks the given directory (or the current one), and writes a
	bal_library.json into it with one entity per file found.  Hidden files
	are skipped.

	Entity names are derived from each file's path relative to the directory:

	  path      props/floor.usda -> bal:///props/floor.usda
	  stripext  props/floor.usda -> bal:///props/floor  (default)
	  base      props/floor.usda -> bal:///floor

	An existing library is only replaced with -f.`,
	ArgsUsage: "[ dir ]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:        "names, n",
			Usage:       "Naming of entities {path, stripext, base}",
			Value:       "stripext",
			Destination: &indexOpts.names,
		},
		cli.StringSliceFlag{
			Name:  "ext, e",
			Usage: "Only index files with this extension (repeatable)",
			Value: &indexOpts.extensions,
		},
		cli.StringSliceFlag{
			Name:  "capability",
			Usage: "Capability the library declares (repeatable);  defaults to resolution",
			Value: &indexOpts.capabilities,
		},
		cli.BoolFlag{
			Name:        "force, f",
			Usage:       "Replace an existing library",
			Destination: &indexOpts.force,
		},
	},
	Action: func(c *cli.Context) error {
		switch len(c.Args()) {
		case 0:
			return indexAction(".")
		case 1:
			return indexAction(c.Args()[0])
		default:
			return fmt.Errorf("index takes zero or one arguments")
		}
	},
}

func generator(name string) (fspath.Generator, error) {
	switch strings.ToLower(name) {
	case "path":
		return fspath.Passthrough, nil
	case "", "stripext":
		return fspath.StripExt, nil
	case "base":
		return fspath.Base, nil
	default:
		return nil, errors.Errorf("unknown entity naming %s", name)
	}
}

func indexAction(dir string) error {
	names, err := generator(indexOpts.names)
	if err != nil {
		return err
	}

	var caps []string
	if len(indexOpts.capabilities) > 0 {
		caps = indexOpts.capabilities
	}

	lib, err := bal.Index(dir, bal.IndexOptions{
		Names:        names,
		Extensions:   indexOpts.extensions,
		Capabilities: caps,
	})
	if err != nil {
		return err
	}
	if err = lib.Validate(); err != nil {
		return err
	}

	path := filepath.Join(lib.Dir(), metadata.LibraryFile)
	if err = writeLibrary(lib, path, indexOpts.force); err != nil {
		return err
	}

	fmt.Printf("indexed %d entities into %s\n", len(lib.Entities), path)
	return nil
}

// writeLibrary atomically writes a library file
func writeLibrary(lib *metadata.Library, path string, replace bool) error {
	if _, err := os.Stat(path); err == nil && !replace {
		return fmt.Errorf("%s already exists", path)
	}

	w, err := fs.AtomicWrite(path)
	if err != nil {
		return err
	}

	if err = lib.Serialize(w); err != nil {
		_ = w.Rollback()
		return errors.Wrapf(err, "could not write %s", path)
	}

	return w.Close()
}
