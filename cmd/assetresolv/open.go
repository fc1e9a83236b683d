package main

import (
	"context"
	"fmt"
	"os"

	"github.com/birkland/assetresolv/internal/stage"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var openOpts = struct {
	layers bool
}{}

var open = cli.Command{
	Name:  "open",
	Usage: "Open and compose a layer, printing the composed prims",
	Description: `Opens a layer the way a host application would, composing every
	reference it contains, recursively.  References may be entity references,
	or plain file paths.

	References that cannot be composed are reported on stderr;  the prims
	holding them are printed without the referenced content.`,
	ArgsUsage: "ref",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:        "layers",
			Usage:       "List the layers used, rather than the composed prims",
			Destination: &openOpts.layers,
		},
	},
	Action: func(c *cli.Context) error {
		if len(c.Args()) != 1 {
			return fmt.Errorf("open takes exactly one reference")
		}
		return openAction(c.Args()[0])
	},
}

func openAction(ref string) error {
	ctx := context.Background()
	b, err := newBridge(ctx)
	if err != nil {
		return err
	}

	s, err := stage.Open(ctx, b, ref, nil)
	if err != nil {
		return err
	}

	for _, e := range s.Errors {
		fmt.Fprintln(os.Stderr, e)
	}

	if openOpts.layers {
		for _, l := range s.Layers {
			fmt.Printf("%s    %s\n", l.Identifier, l.Location)
		}
		return nil
	}

	return errors.Wrapf(stage.Format(os.Stdout, s.Root.DefaultPrim, s.Prims), "could not print %s", ref)
}
