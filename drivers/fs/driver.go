// Package fs provides default filesystem resolution of asset references: the
// behavior a bridge falls through to for every reference that is not an entity
// reference.
//
// Relative references (./x, ../x) are anchored to the directory of the asset they
// are found in.  Search path references (x/y.usda) are anchored too if the anchored
// file exists, and otherwise kept as search paths, to be looked for relative to the
// current directory, then under the search paths of the resolution context, then
// under the resolver's configured search paths.
package fs

import (
	"path/filepath"
)

// Resolver resolves references against the local filesystem
type Resolver struct {
	cfg Config
}

// Config encapsulates a filesystem resolver config.
type Config struct {
	SearchPaths []string // consulted after those of a resolution context
}

// NewResolver initializes a new filesystem resolver.  Search paths are made absolute
func NewResolver(cfg Config) *Resolver {
	paths := make([]string, 0, len(cfg.SearchPaths))
	for _, p := range cfg.SearchPaths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		paths = append(paths, p)
	}

	return &Resolver{cfg: Config{SearchPaths: paths}}
}
