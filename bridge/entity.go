package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/drivers/fs"
	"github.com/birkland/assetresolv/internal/diag"
	"github.com/birkland/assetresolv/resolv"
	"golang.org/x/sync/errgroup"
)

// ResolveEntity resolves an entity reference to its asset.  Unlike Resolve, it
// does not fall through:  a reference the backend does not own is a
// classification mismatch.
func (b *Bridge) ResolveEntity(ctx context.Context, ref string) (assetresolv.Asset, error) {
	st := b.state()
	id, ok := b.classify(ctx, st, ref)
	if !ok {
		err := mismatch(opResolveEntity, ref)
		b.done(ctx, opResolveEntity, ref, err)
		return assetresolv.Asset{}, err
	}

	asset, err := b.resolveEntity(ctx, st, id)
	b.done(ctx, opResolveEntity, id, err)
	return asset, err
}

// ResolveAll resolves many entity references concurrently.  The results are
// parallel to refs;  each element either has an asset, or a non-nil error.
// Failures are independent of one another.
func (b *Bridge) ResolveAll(ctx context.Context, refs []string) ([]assetresolv.Asset, []error) {
	assets := make([]assetresolv.Asset, len(refs))
	errs := make([]error, len(refs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0) * 2)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			assets[i], errs[i] = b.ResolveEntity(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	return assets, errs
}

// resolveEntity returns the asset of a classified entity identifier, from the
// cache if possible.
func (b *Bridge) resolveEntity(ctx context.Context, st state, id string) (assetresolv.Asset, error) {
	if asset, ok := b.cache.Get(id); ok {
		b.diag.Log(ctx, opCacheGet, id, diag.CacheHit)
		return asset, nil
	}
	b.diag.Log(ctx, opCacheGet, id, diag.CacheMiss)

	asset, err := b.cache.Load(ctx, id,
		func(ctx context.Context) (assetresolv.Asset, error) {
			return b.load(ctx, st, id)
		},
		func(asset assetresolv.Asset) {
			b.diag.Log(ctx, opCacheStore, id, diag.Success, "location", asset.Location)
		})
	if cerr := ctx.Err(); cerr != nil && err == cerr {
		e := abandoned(opResolveEntity, err)
		e.Identifier = id
		return assetresolv.Asset{}, e
	}
	return asset, err
}

// load resolves an identifier through the backend
func (b *Bridge) load(ctx context.Context, st state, id string) (assetresolv.Asset, error) {
	if err := b.ensureCapable(ctx, st, id, assetresolv.Resolution); err != nil {
		return assetresolv.Asset{}, err
	}

	results, err := st.backend.Resolve(ctx, []string{id})
	if err == nil && len(results) != 1 {
		err = fmt.Errorf("backend returned %d results for a batch of one", len(results))
	}
	if err != nil {
		var e *assetresolv.Error
		if interrupted(ctx, err) {
			e = abandoned(opBackendResolve, err)
		} else {
			st.gate.unavailable(err)
			e = backendDown(opBackendResolve, err)
		}
		e.Identifier = id
		b.diag.Error(ctx, opBackendResolve, id, e)
		return assetresolv.Asset{}, e
	}

	if be := results[0].Err; be != nil {
		e := assetresolv.ErrorFromBatch(opBackendResolve, id, be)
		b.diag.Error(ctx, opBackendResolve, id, e, "code", be.Code.String())
		return assetresolv.Asset{}, e
	}

	asset := newAsset(id, results[0].Entity)
	b.diag.Log(ctx, opBackendResolve, id, diag.Success, "location", asset.Location)
	return asset, nil
}

func newAsset(id string, e assetresolv.Entity) assetresolv.Asset {
	loc := resolv.LocalPath(e.Location)

	info := e.Info.Copy()
	info[assetresolv.InfoEntityReference] = id
	info[assetresolv.InfoResolvedLocation] = loc

	return assetresolv.Asset{
		Identifier: id,
		Location:   loc,
		Extension:  fs.Extension(loc),
		ModTime:    e.ModTime,
		Info:       info,
	}
}

// modTime is the backend supplied modification time of an asset, or else the
// modification time of its file, if it is local.
func modTime(asset assetresolv.Asset) (time.Time, bool) {
	if asset.HasModTime() {
		return asset.ModTime, true
	}
	if !filepath.IsAbs(asset.Location) {
		return time.Time{}, false
	}

	fi, err := os.Stat(asset.Location)
	if err != nil {
		return time.Time{}, false
	}
	return fi.ModTime(), true
}

func mismatch(op, ref string) error {
	return &assetresolv.Error{
		Kind:       assetresolv.KindClassificationMismatch,
		Op:         op,
		Identifier: ref,
		Err:        fmt.Errorf("not an entity reference"),
	}
}
