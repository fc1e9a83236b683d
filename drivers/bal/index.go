package bal

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/birkland/assetresolv/drivers/fs"
	"github.com/birkland/assetresolv/fspath"
	"github.com/birkland/assetresolv/metadata"
	"github.com/pkg/errors"
)

// IndexOptions control how a directory is indexed into a library
type IndexOptions struct {
	Names        fspath.Generator // entity names from relative paths;  defaults to fspath.StripExt
	Extensions   []string         // extensions (without the dot) to include;  empty means all
	Capabilities []string         // capabilities the library declares;  nil means the defaults
}

// Index walks a directory and creates a library with one entity per file found,
// the location of each expressed relative to ${bal_library_dir}.  The library is
// meant to be stored in the indexed directory.
func Index(dir string, opts IndexOptions) (*metadata.Library, error) {
	names := opts.Names
	if names == nil {
		names = fspath.StripExt
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not calculate absolute path of %s", dir)
	}

	lib := metadata.NewLibrary(opts.Capabilities...)
	if opts.Capabilities == nil {
		lib.Capabilities = nil
	}
	lib.SetDir(root)

	err = fs.Walk(root, func(relpath, abspath string) error {
		if relpath == metadata.LibraryFile || !included(relpath, opts.Extensions) {
			return nil
		}

		name := names.Generate(relpath)
		if err := metadata.ValidateName(name); err != nil {
			return errors.Wrapf(err, "bad entity name for %s", relpath)
		}
		if _, exists := lib.Entities[name]; exists {
			return fmt.Errorf("entity name '%s' of %s collides with another file", name, relpath)
		}

		lib.Put(name, metadata.Version{Location: metadata.VarLibraryDir + "/" + relpath})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not index %s", root)
	}

	return lib, nil
}

func included(relpath string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(path.Ext(relpath), ".")
	for _, e := range exts {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}
