package assetresolv

import (
	"context"
	"io"
	"time"
)

// Resolver is the reference resolution protocol a host document system calls
// for every asset reference it encounters.  A resolution context for the
// current document open, if any, travels on ctx (see resolv.WithCxt).
type Resolver interface {

	// CreateIdentifier turns an authored reference into an identifier, anchoring
	// relative references to the identifier of the asset they were found in.
	// An empty anchor means the reference was not found inside another asset.
	CreateIdentifier(ctx context.Context, ref, anchor string) (string, error)

	// Resolve returns the concrete location the identifier denotes.
	Resolve(ctx context.Context, id string) (string, error)

	// GetExtension returns the extension of the identified asset, without the dot.
	GetExtension(ctx context.Context, id string) (string, error)

	// GetAssetInfo returns descriptive metadata about the identified asset.
	GetAssetInfo(ctx context.Context, id string) (Info, error)

	// OpenAsset opens the identified asset for reading.
	OpenAsset(ctx context.Context, id string) (io.ReadCloser, error)

	// GetModificationTimestamp returns the asset's modification time, and false
	// if it is not known.
	GetModificationTimestamp(ctx context.Context, id string) (time.Time, bool, error)

	// OpenAssetForWrite opens the identified asset for writing.
	OpenAssetForWrite(ctx context.Context, id string) (Writer, error)
}

// Writer is a writable asset handle.  Close commits the written content,
// Rollback discards it.
type Writer interface {
	io.WriteCloser
	Rollback() error
}
