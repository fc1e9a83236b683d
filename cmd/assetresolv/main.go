package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/bridge"
	"github.com/birkland/assetresolv/config"
	"github.com/birkland/assetresolv/drivers/bal"
	"github.com/birkland/assetresolv/drivers/fs"
	"github.com/birkland/assetresolv/internal/diag"
	"github.com/birkland/assetresolv/metadata"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var mainOpts = struct {
	config      string
	library     string
	searchPaths string
	verbose     bool
	format      string
	trace       string
}{}

func main() {
	app := cli.NewApp()
	app.Name = "assetresolv"
	app.Usage = "Resolve asset references through an asset management backend"
	app.EnableBashCompletion = true
	app.Commands = []cli.Command{
		resolve,
		open,
		ls,
		index,
		mklib,
	}
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "Backend configuration file (toml, yaml or json)",
			EnvVar:      "OPENASSETIO_DEFAULT_CONFIG",
			Destination: &mainOpts.config,
		},
		cli.StringFlag{
			Name:        "library, l",
			Usage:       "Basic asset library file;  overrides any backend configuration",
			EnvVar:      "BAL_LIBRARY_PATH",
			Destination: &mainOpts.library,
		},
		cli.StringFlag{
			Name:        "search-path, s",
			Usage:       "Search paths for plain references, separated by " + string(os.PathListSeparator),
			EnvVar:      "OAIO_SEARCH_PATH",
			Destination: &mainOpts.searchPaths,
		},
		cli.BoolFlag{
			Name:        "verbose, v",
			Usage:       "Log every resolver operation, not only failures",
			EnvVar:      "OAIO_RESOLVER_DEBUG",
			Destination: &mainOpts.verbose,
		},
		cli.StringFlag{
			Name:        "log-format",
			Usage:       "Diagnostics format {text, json}",
			EnvVar:      "OAIO_LOG_FORMAT",
			Value:       "text",
			Destination: &mainOpts.format,
		},
		cli.StringFlag{
			Name:        "trace",
			Usage:       "Comma separated operation names to log;  empty means all",
			EnvVar:      "OAIO_RESOLVER_TRACE",
			Destination: &mainOpts.trace,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newBackend(ctx context.Context) (assetresolv.Backend, error) {
	if mainOpts.library != "" {
		b, err := bal.Open(mainOpts.library)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	if mainOpts.config == "" {
		return nil, errors.New("no backend: give a library (-l) or a backend configuration (-c)")
	}

	cfg, err := config.LoadBackend(mainOpts.config)
	if err != nil {
		return nil, err
	}
	return bridge.OpenBackend(ctx, cfg)
}

func newBridge(ctx context.Context) (*bridge.Bridge, error) {
	backend, err := newBackend(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "could not initialize backend")
	}

	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	emitter := diag.New(os.Stderr, diag.Options{
		Verbose: mainOpts.verbose || env.VerboseEnabled(),
		Trace:   strings.Split(mainOpts.trace, ","),
		Format:  mainOpts.format,
	})

	return bridge.New(backend,
		bridge.WithEmitter(emitter),
		bridge.WithFallback(fs.NewResolver(fs.Config{SearchPaths: searchPaths()})),
	), nil
}

func searchPaths() []string {
	var paths []string
	for _, p := range filepath.SplitList(mainOpts.searchPaths) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// libraryPath is the BAL library named by -l, or the one in the current directory
func libraryPath() string {
	if mainOpts.library != "" {
		return mainOpts.library
	}
	return metadata.LibraryFile
}
