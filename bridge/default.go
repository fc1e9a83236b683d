package bridge

import (
	"context"
	"os"
	"sync"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/config"
	"github.com/birkland/assetresolv/drivers/fs"
	"github.com/birkland/assetresolv/internal/diag"
	"github.com/pkg/errors"
)

var dflt struct {
	sync.Mutex
	done   bool
	bridge *Bridge
	err    error
}

// Default returns the process wide bridge, configured from the environment on
// first use.  If that fails, the same error is returned to every caller until
// ResetDefault.
func Default() (*Bridge, error) {
	dflt.Lock()
	defer dflt.Unlock()

	if !dflt.done {
		dflt.bridge, dflt.err = FromEnv(context.Background())
		dflt.done = true
	}
	return dflt.bridge, dflt.err
}

// ResetDefault discards the process wide bridge
func ResetDefault() {
	dflt.Lock()
	defer dflt.Unlock()
	dflt.done = false
	dflt.bridge = nil
	dflt.err = nil
}

// FromEnv builds a bridge from the environment:  the backend named in the
// OPENASSETIO_DEFAULT_CONFIG file, search paths from OAIO_SEARCH_PATH, and
// diagnostics on stdout as the debug switches say.
func FromEnv(ctx context.Context) (*Bridge, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, unavailable(err)
	}

	if env.ConfigPath == "" {
		return nil, unavailable(errors.New("OPENASSETIO_DEFAULT_CONFIG is not set"))
	}

	cfg, err := config.LoadBackend(env.ConfigPath)
	if err != nil {
		return nil, unavailable(err)
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, unavailable(err)
	}

	emitter := diag.New(os.Stdout, diag.Options{
		Verbose: env.VerboseEnabled(),
		Trace:   env.Trace,
		Format:  env.LogFormat,
	})

	return New(backend,
		WithEmitter(emitter),
		WithFallback(fs.NewResolver(fs.Config{SearchPaths: env.SearchPaths})),
	), nil
}

func unavailable(err error) error {
	return &assetresolv.Error{
		Kind: assetresolv.KindBackendUnavailable,
		Op:   "initialize",
		Err:  err,
	}
}
