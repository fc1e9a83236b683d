package main

import (
	"fmt"
	"strings"

	"github.com/birkland/assetresolv/drivers/bal"
	"github.com/birkland/assetresolv/metadata"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var lsOpts = struct {
	physical bool
	versions bool
}{}

var ls = cli.Command{
	Name:  "ls",
	Usage: "List the entities of a basic asset library",
	Description: `Lists the entity references of a basic asset library (the one given
	by -l, or bal_library.json in the current directory).

	Given entity names or references as arguments, only those are listed.
	With -p, the location each resolves to is printed as well, e.g.

	  assetresolv -l bal_library.json ls -p floor

	With --versions, every version of each entity is listed, rather than
	only the latest one.`,
	ArgsUsage: "[ name | ref ] ...",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:        "physical, p",
			Usage:       "Show the location of each entity",
			Destination: &lsOpts.physical,
		},
		cli.BoolFlag{
			Name:        "versions",
			Usage:       "Show all versions of each entity",
			Destination: &lsOpts.versions,
		},
	},

	Action: func(c *cli.Context) error {
		return lsAction(c.Args())
	},
}

func lsAction(args []string) error {
	lib, err := metadata.ReadLibrary(libraryPath())
	if err != nil {
		return err
	}

	names := lib.Names()
	if len(args) > 0 {
		names = names[:0]
		for _, arg := range args {
			name := arg
			if strings.HasPrefix(strings.ToLower(arg), bal.Scheme+":") {
				n, _, berr := bal.ParseRef(arg)
				if berr != nil {
					return berr
				}
				name = n
			}
			if _, ok := lib.Entities[name]; !ok {
				return errors.Errorf("no entity named %s", name)
			}
			names = append(names, name)
		}
	}

	for _, name := range names {
		latest := len(lib.Entities[name].Versions)
		first := latest
		if lsOpts.versions {
			first = 1
		}

		for v := first; v <= latest; v++ {
			ref := bal.Ref(name, 0)
			if lsOpts.versions {
				ref = bal.Ref(name, v)
			}
			coords := []string{ref}

			if lsOpts.physical {
				if version, err := lib.Lookup(name, v); err != nil {
					coords = append(coords, "("+errors.Cause(err).Error()+")")
				} else {
					coords = append(coords, version.Location)
				}
			}

			fmt.Println(strings.Join(coords, "    "))
		}
	}

	return nil
}
