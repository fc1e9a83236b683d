package bridge

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/resolv"
	"github.com/pkg/errors"
)

// CreateIdentifier canonicalizes entity references, and otherwise anchors the
// reference with the fallback resolver.  A relative reference found in an
// entity's asset is anchored to where that entity resolves to.
func (b *Bridge) CreateIdentifier(ctx context.Context, ref, anchor string) (string, error) {
	st := b.state()
	if id, ok := b.classify(ctx, st, ref); ok {
		b.done(ctx, opCreateIdentifier, id, nil)
		return id, nil
	}

	if anchorID, ok := st.classifier.Classify(anchor); ok && !filepath.IsAbs(resolv.LocalPath(ref)) {
		asset, err := b.resolveEntity(ctx, st, anchorID)
		if err != nil {
			b.done(ctx, opCreateIdentifier, ref, err, "anchor", anchorID)
			return "", err
		}
		anchor = asset.Location
	}

	id, err := b.fallback.CreateIdentifier(ctx, ref, anchor)
	b.done(ctx, opCreateIdentifier, ref, err, "anchor", anchor)
	return id, err
}

// Resolve resolves an identifier to a concrete location
func (b *Bridge) Resolve(ctx context.Context, id string) (string, error) {
	st := b.state()
	if eid, ok := b.classify(ctx, st, id); ok {
		asset, err := b.resolveEntity(ctx, st, eid)
		b.done(ctx, opResolve, eid, err, "location", asset.Location)
		return asset.Location, err
	}

	loc, err := b.fallback.Resolve(ctx, id)
	b.done(ctx, opResolve, id, err, "location", loc)
	return loc, err
}

// GetExtension returns the extension of the asset an identifier denotes.  For
// entity references, that is the extension of the resolved location, not of
// the reference.
func (b *Bridge) GetExtension(ctx context.Context, id string) (string, error) {
	st := b.state()
	if eid, ok := b.classify(ctx, st, id); ok {
		asset, err := b.resolveEntity(ctx, st, eid)
		b.done(ctx, opGetExtension, eid, err, "extension", asset.Extension)
		return asset.Extension, err
	}

	ext, err := b.fallback.GetExtension(ctx, id)
	b.done(ctx, opGetExtension, id, err, "extension", ext)
	return ext, err
}

// GetAssetInfo returns the info bag of the asset an identifier denotes.  The
// returned bag belongs to the caller.
func (b *Bridge) GetAssetInfo(ctx context.Context, id string) (assetresolv.Info, error) {
	st := b.state()
	if eid, ok := b.classify(ctx, st, id); ok {
		asset, err := b.resolveEntity(ctx, st, eid)
		b.done(ctx, opGetAssetInfo, eid, err)
		if err != nil {
			return nil, err
		}
		return asset.Info.Copy(), nil
	}

	info, err := b.fallback.GetAssetInfo(ctx, id)
	b.done(ctx, opGetAssetInfo, id, err)
	return info, err
}

// OpenAsset opens the asset an identifier denotes for reading
func (b *Bridge) OpenAsset(ctx context.Context, id string) (io.ReadCloser, error) {
	st := b.state()
	eid, ok := b.classify(ctx, st, id)
	if !ok {
		r, err := b.fallback.OpenAsset(ctx, id)
		b.done(ctx, opOpenAsset, id, err)
		return r, err
	}

	asset, err := b.resolveEntity(ctx, st, eid)
	if err == nil {
		var f *os.File
		if f, err = os.Open(asset.Location); err == nil {
			b.done(ctx, opOpenAsset, eid, nil, "location", asset.Location)
			return f, nil
		}
		err = errors.Wrapf(err, "could not open %s", asset.Location)
	}

	b.done(ctx, opOpenAsset, eid, err)
	return nil, err
}

// GetModificationTimestamp returns the modification time of the asset an
// identifier denotes.  For entities without a backend supplied timestamp, the
// time of the resolved file is used;  false means no timestamp is known.
func (b *Bridge) GetModificationTimestamp(ctx context.Context, id string) (time.Time, bool, error) {
	st := b.state()
	eid, ok := b.classify(ctx, st, id)
	if !ok {
		t, ok, err := b.fallback.GetModificationTimestamp(ctx, id)
		b.done(ctx, opGetModTimestamp, id, err)
		return t, ok, err
	}

	asset, err := b.resolveEntity(ctx, st, eid)
	if err != nil {
		b.done(ctx, opGetModTimestamp, eid, err)
		return time.Time{}, false, err
	}

	t, ok := modTime(asset)
	b.done(ctx, opGetModTimestamp, eid, nil, "known", ok)
	return t, ok, nil
}

// OpenAssetForWrite opens a plain identifier for writing.  Writes to entity
// references are never supported.
func (b *Bridge) OpenAssetForWrite(ctx context.Context, id string) (assetresolv.Writer, error) {
	st := b.state()
	eid, ok := b.classify(ctx, st, id)
	if !ok {
		w, err := b.fallback.OpenAssetForWrite(ctx, id)
		b.done(ctx, opOpenAssetForWrite, id, err)
		return w, err
	}

	err := b.refuseWrite(ctx, st, eid)
	b.done(ctx, opOpenAssetForWrite, eid, err)
	return nil, err
}

// refuseWrite builds the error for a write against an entity.  Whether or not
// the backend could publish, writing is refused;  if it cannot, the capability
// failure is the cause.
func (b *Bridge) refuseWrite(ctx context.Context, st state, id string) error {
	cause := b.ensureCapable(ctx, st, id, assetresolv.Publishing)
	if cause == nil {
		cause = errors.New("writing to entity references is not supported")
	}

	return &assetresolv.Error{
		Kind:       assetresolv.KindWriteNotSupported,
		Op:         opOpenAssetForWrite,
		Identifier: id,
		Err:        cause,
	}
}
