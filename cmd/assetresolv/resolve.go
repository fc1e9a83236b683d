package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

var resolveOpts = struct {
	info bool
}{}

var resolve = cli.Command{
	Name:  "resolve",
	Usage: "Resolve references to locations",
	Description: `Given a list of references, print where each resolves to.

	Entity references (e.g. bal:///props/floor) are resolved through the
	backend;  anything else is resolved as a file, relative to the current
	directory or any search path.  For example

	  assetresolv -l bal_library.json resolve bal:///floor ./shots/parking_lot.usda

	References that cannot be resolved are reported, and make the command fail,
	but do not prevent the others from being resolved.`,
	ArgsUsage: "ref...",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:        "info, i",
			Usage:       "Also print the asset info of each reference",
			Destination: &resolveOpts.info,
		},
	},
	Action: func(c *cli.Context) error {
		return resolveAction(c.Args())
	},
}

type resolution struct {
	ref  string
	loc  string
	info map[string]string
	err  error
}

func resolveAction(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no references given")
	}

	ctx := context.Background()
	b, err := newBridge(ctx)
	if err != nil {
		return err
	}

	results := make([]resolution, len(args))

	var g errgroup.Group
	for i, ref := range args {
		i, ref := i, ref
		g.Go(func() error {
			r := &results[i]
			r.ref = ref

			id, err := b.CreateIdentifier(ctx, ref, "")
			if err != nil {
				r.err = err
				return nil
			}
			if r.loc, r.err = b.Resolve(ctx, id); r.err != nil {
				return nil
			}
			if resolveOpts.info {
				r.info, r.err = b.GetAssetInfo(ctx, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Printf("%s    error: %s\n", r.ref, r.err)
			continue
		}

		fmt.Printf("%s    %s\n", r.ref, r.loc)
		if resolveOpts.info {
			keys := make([]string, 0, len(r.info))
			for k := range r.info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("    %s=%s\n", k, r.info[k])
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("could not resolve %d of %s", failed, strings.Join(args, ", "))
	}
	return nil
}
