package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/resolv"
	"github.com/pkg/errors"
)

var _ assetresolv.Resolver = (*Resolver)(nil)

// CreateIdentifier anchors a plain reference.  The anchor is the identifier of the
// asset the reference was found in, or empty.  An anchor that is itself an
// unanchored search path is resolved first, so that references are always anchored
// to where their asset actually is.
func (r *Resolver) CreateIdentifier(ctx context.Context, ref, anchor string) (string, error) {
	if ref == "" {
		return "", nil
	}

	ref = resolv.LocalPath(ref)
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}

	if anchor == "" {
		if resolv.IsRelative(ref) {
			abs, err := filepath.Abs(ref)
			return abs, errors.Wrapf(err, "could not calculate absolute path of %s", ref)
		}
		return filepath.Clean(ref), nil
	}

	base := resolv.LocalPath(anchor)
	if !filepath.IsAbs(base) {
		resolved, err := r.Resolve(ctx, base)
		if err != nil {
			return "", errors.Wrapf(err, "could not anchor %s", ref)
		}
		base = resolved
	}

	anchored := resolv.Anchor(base, ref)
	if resolv.IsRelative(ref) || exists(anchored) {
		return anchored, nil
	}

	return filepath.Clean(ref), nil
}

// Resolve finds the file an identifier denotes.  Absolute identifiers resolve to
// themselves if they exist.  Relative ones are looked for relative to the current
// directory, and then underneath each search path.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", errors.New("cannot resolve an empty identifier")
	}

	p := resolv.LocalPath(id)
	if filepath.IsAbs(p) {
		if exists(p) {
			return p, nil
		}
		return "", errors.Wrapf(os.ErrNotExist, "could not resolve %s", id)
	}

	for _, candidate := range r.candidates(ctx, p) {
		if exists(candidate) {
			return candidate, nil
		}
	}

	return "", errors.Wrapf(os.ErrNotExist, "could not resolve %s in search paths %s",
		id, strings.Join(r.searchPaths(ctx), string(filepath.ListSeparator)))
}

func (r *Resolver) candidates(ctx context.Context, rel string) []string {
	var candidates []string
	if abs, err := filepath.Abs(rel); err == nil {
		candidates = append(candidates, abs)
	}

	// Explicitly relative paths are never looked for in search paths
	if resolv.IsRelative(rel) {
		return candidates
	}

	for _, dir := range r.searchPaths(ctx) {
		candidates = append(candidates, filepath.Join(dir, rel))
	}
	return candidates
}

func (r *Resolver) searchPaths(ctx context.Context) []string {
	cxtPaths := resolv.SearchPaths(ctx)
	paths := make([]string, 0, len(cxtPaths)+len(r.cfg.SearchPaths))
	return append(append(paths, cxtPaths...), r.cfg.SearchPaths...)
}

// GetExtension returns the file extension of the identifier, without the dot
func (r *Resolver) GetExtension(ctx context.Context, id string) (string, error) {
	return Extension(id), nil
}

// Extension returns the file extension of a path or URL, without the dot
func Extension(loc string) string {
	loc = resolv.LocalPath(loc)
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	return strings.TrimPrefix(filepath.Ext(loc), ".")
}

// GetAssetInfo returns no information beyond the identifier itself;  plain files
// carry no metadata.
func (r *Resolver) GetAssetInfo(ctx context.Context, id string) (assetresolv.Info, error) {
	return assetresolv.Info{}, nil
}

// OpenAsset opens the resolved file for reading
func (r *Resolver) OpenAsset(ctx context.Context, id string) (io.ReadCloser, error) {
	loc, err := r.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(loc)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", loc)
	}
	return f, nil
}

// GetModificationTimestamp returns the modification time of the resolved file
func (r *Resolver) GetModificationTimestamp(ctx context.Context, id string) (time.Time, bool, error) {
	loc, err := r.Resolve(ctx, id)
	if err != nil {
		return time.Time{}, false, err
	}

	info, err := os.Stat(loc)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "could not stat %s", loc)
	}
	return info.ModTime(), true, nil
}

// OpenAssetForWrite opens the identified file for an atomic write, creating any
// necessary parent directories.  Unanchored identifiers are written relative to the
// current directory.
func (r *Resolver) OpenAssetForWrite(ctx context.Context, id string) (assetresolv.Writer, error) {
	if id == "" {
		return nil, errors.New("cannot write to an empty identifier")
	}

	p, err := filepath.Abs(resolv.LocalPath(id))
	if err != nil {
		return nil, errors.Wrapf(err, "could not calculate absolute path of %s", id)
	}

	if err = os.MkdirAll(filepath.Dir(p), 0775); err != nil {
		return nil, errors.Wrapf(err, "could not create directory for %s", p)
	}

	w, err := AtomicWrite(p)
	if err != nil {
		return nil, err
	}
	return w, nil
}
