// Package bal is a backend serving entity references from a Basic Asset Library:
// a JSON file naming entities and the locations of their versions (see package
// metadata).
//
// Entity references take the form bal:///<name>, optionally with a version query,
// e.g. bal:///floor?v=2.  Without a version the latest version is resolved.
package bal

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/metadata"
	"github.com/pkg/errors"
)

// Identifier of the BAL backend
const Identifier = "org.openassetio.examples.manager.bal"

// Scheme of BAL entity references
const Scheme = "bal"

const prefix = Scheme + ":///"

// Info keys added to resolved entities
const (
	InfoEntityName = "entityName"
	InfoVersion    = "version"
)

// Backend resolves entity references against a library
type Backend struct {
	mu   sync.RWMutex
	lib  *metadata.Library
	path string
}

var _ assetresolv.Backend = (*Backend)(nil)

// Open reads the library at the given path
func Open(path string) (*Backend, error) {
	lib, err := metadata.ReadLibrary(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open basic asset library")
	}
	return &Backend{lib: lib, path: path}, nil
}

// New serves an in-memory library
func New(lib *metadata.Library) *Backend {
	return &Backend{lib: lib}
}

// Identifier names the backend
func (b *Backend) Identifier() string {
	return Identifier
}

// Scheme of the entity references owned by the backend
func (b *Backend) Scheme() string {
	return Scheme
}

// Library returns the library currently served
func (b *Backend) Library() *metadata.Library {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lib
}

// Reload re-reads the library file.  It is an error to reload an in-memory library.
func (b *Backend) Reload() error {
	if b.path == "" {
		return errors.New("library was not read from a file")
	}

	lib, err := metadata.ReadLibrary(b.path)
	if err != nil {
		return errors.Wrapf(err, "could not reload basic asset library")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lib = lib
	return nil
}

// HasCapability tells whether the library declares the given capability
func (b *Backend) HasCapability(ctx context.Context, c assetresolv.Capability) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return b.Library().Supports(c.String()), nil
}

// Resolve resolves each reference independently;  per-reference failures are
// reported as batch element errors.
func (b *Backend) Resolve(ctx context.Context, refs []string) ([]assetresolv.BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lib := b.Library()
	results := make([]assetresolv.BatchResult, len(refs))
	for i, ref := range refs {
		results[i] = resolve(lib, ref)
	}
	return results, nil
}

func resolve(lib *metadata.Library, ref string) assetresolv.BatchResult {
	name, version, berr := ParseRef(ref)
	if berr != nil {
		return assetresolv.BatchResult{Err: berr}
	}

	v, err := lib.Lookup(name, version)
	if err != nil {
		return assetresolv.BatchResult{Err: &assetresolv.BatchElementError{
			Code:    assetresolv.CodeEntityResolutionError,
			Message: err.Error(),
		}}
	}

	info := make(assetresolv.Info, len(v.Info)+2)
	for k, val := range v.Info {
		info[k] = val
	}
	info[InfoEntityName] = name
	if version == 0 {
		version = len(lib.Entities[name].Versions)
	}
	info[InfoVersion] = strconv.Itoa(version)

	var modified time.Time
	if v.Modified != nil {
		modified = *v.Modified
	}

	return assetresolv.BatchResult{Entity: assetresolv.Entity{
		Location: v.Location,
		ModTime:  modified,
		Info:     info,
	}}
}

// ParseRef splits an entity reference into an entity name and version (zero for
// latest).  References that do not look like BAL entity references are reported
// as malformed.
func ParseRef(ref string) (name string, version int, err *assetresolv.BatchElementError) {
	malformed := func(reason string) *assetresolv.BatchElementError {
		return &assetresolv.BatchElementError{
			Code:    assetresolv.CodeMalformedEntityReference,
			Message: "'" + ref + "' " + reason,
		}
	}

	if !strings.HasPrefix(strings.ToLower(ref), Scheme+":") {
		return "", 0, &assetresolv.BatchElementError{
			Code:    assetresolv.CodeInvalidEntityReference,
			Message: "'" + ref + "' is not a " + Scheme + " entity reference",
		}
	}

	if !strings.HasPrefix(strings.ToLower(ref), prefix) {
		return "", 0, malformed("is missing the " + prefix + " prefix")
	}

	rest := ref[len(prefix):]
	var query string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i+1:]
	}

	if rest == "" {
		return "", 0, malformed("has no entity name")
	}

	name, uerr := url.PathUnescape(rest)
	if uerr != nil {
		return "", 0, malformed("has an invalid entity name")
	}

	if query != "" {
		values, qerr := url.ParseQuery(query)
		if qerr != nil {
			return "", 0, malformed("has an invalid query")
		}
		if v := values.Get("v"); v != "" && v != "latest" {
			n, cerr := strconv.Atoi(v)
			if cerr != nil || n < 1 {
				return "", 0, malformed("has an invalid version '" + v + "'")
			}
			version = n
		}
	}

	return name, version, nil
}

// Ref returns the entity reference of the named entity, at the given version
// (zero for latest)
func Ref(name string, version int) string {
	ref := prefix + name
	if version > 0 {
		ref += "?v=" + strconv.Itoa(version)
	}
	return ref
}
