package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/birkland/assetresolv/metadata"
	"github.com/urfave/cli"
)

var mklibOpts = struct {
	capabilities cli.StringSlice
}{}

var mklib = cli.Command{
	Name:  "mklib",
	Usage: "Creates an empty basic asset library",
	Description: `If a directory is given as an argument, creates a bal_library.json in
	it, creating the directory if it does not exist.  A path ending in .json
	names the library file itself.

	With no arguments, creates the library given by -l, or else
	bal_library.json in the current directory.  An existing library is never
	replaced.
	`,
	ArgsUsage: "[ dir | file ]",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  "capability",
			Usage: "Capability the library declares (repeatable);  defaults to resolution",
			Value: &mklibOpts.capabilities,
		},
	},
	Action: func(c *cli.Context) error {
		switch len(c.Args()) {
		case 0:
			return mklibAction(libraryPath())
		case 1:
			return mklibAction(c.Args()[0])
		default:
			return fmt.Errorf("mklib takes zero or one arguments")
		}
	},
}

func mklibAction(path string) error {
	if filepath.Ext(path) != ".json" {
		path = filepath.Join(path, metadata.LibraryFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
		return fmt.Errorf("could not create directory for %s: %s", path, err)
	}

	caps := []string(mklibOpts.capabilities)
	if len(caps) == 0 {
		caps = metadata.DefaultCapabilities
	}

	lib := metadata.NewLibrary(caps...)
	if err := lib.Validate(); err != nil {
		return err
	}

	return writeLibrary(lib, path, false)
}
