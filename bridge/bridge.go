// Package bridge implements the reference resolution protocol of a host document
// system (assetresolv.Resolver) on top of an asset management backend.
//
// For every reference, the bridge decides whether it is an entity reference owned
// by the backend.  Entity references are resolved through the backend, once per
// identifier, and everything about them (extension, info, content, timestamps)
// is answered from that resolution.  Writes to entity references are always
// refused.  Any other reference falls through, untouched, to a default resolver
// (filesystem resolution unless configured otherwise).
//
// A Bridge is safe for concurrent use.  Concurrent resolutions of the same
// identifier are coalesced into a single backend call, and each capability is
// asked of the backend until it answers once.
package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/drivers/fs"
	"github.com/birkland/assetresolv/internal/cache"
	"github.com/birkland/assetresolv/internal/diag"
	"github.com/birkland/assetresolv/resolv"
)

// Bridge delegates entity references to a backend, and everything else to a
// fallback resolver
type Bridge struct {
	mu         sync.RWMutex
	backend    assetresolv.Backend
	classifier resolv.Classifier
	gate       *gate

	fallback assetresolv.Resolver
	cache    *cache.Cache
	diag     *diag.Emitter
}

var _ assetresolv.Resolver = (*Bridge)(nil)

// Option configures a bridge
type Option func(*Bridge)

// WithFallback sets the resolver plain (non-entity) references fall through to
func WithFallback(r assetresolv.Resolver) Option {
	return func(b *Bridge) {
		b.fallback = r
	}
}

// WithLogger sends diagnostics to the given logger.  If traced operation names
// are given, only those are logged.
func WithLogger(l *slog.Logger, traced ...string) Option {
	return func(b *Bridge) {
		b.diag = diag.NewWithLogger(l, traced...)
	}
}

// WithEmitter sends diagnostics to the given emitter
func WithEmitter(e *diag.Emitter) Option {
	return func(b *Bridge) {
		b.diag = e
	}
}

// New creates a bridge in front of the given backend
func New(backend assetresolv.Backend, opts ...Option) *Bridge {
	b := &Bridge{
		cache: cache.New(),
		diag:  diag.Nop(),
	}
	b.setBackend(backend)

	for _, opt := range opts {
		opt(b)
	}

	if b.fallback == nil {
		b.fallback = fs.NewResolver(fs.Config{})
	}

	return b
}

func (b *Bridge) setBackend(backend assetresolv.Backend) {
	b.backend = backend
	b.classifier = resolv.NewClassifier(backend.Scheme())
	b.gate = newGate(backend)
}

// state is a consistent view of the backend related state, as of one call
type state struct {
	backend    assetresolv.Backend
	classifier resolv.Classifier
	gate       *gate
}

func (b *Bridge) state() state {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return state{
		backend:    b.backend,
		classifier: b.classifier,
		gate:       b.gate,
	}
}

// Backend returns the backend currently in use
func (b *Bridge) Backend() assetresolv.Backend {
	return b.state().backend
}

// Reconfigure replaces the backend.  Capability state, the backend-unavailable
// latch, and all cached resolutions are discarded.
func (b *Bridge) Reconfigure(backend assetresolv.Backend) {
	b.mu.Lock()
	b.setBackend(backend)
	b.mu.Unlock()

	b.cache.Invalidate()
	b.diag.Log(context.Background(), opInvalidate, "*", diag.Success, "backend", backend.Identifier())
}

// Invalidate discards cached resolutions of the given references, or of
// everything if none are given.
func (b *Bridge) Invalidate(refs ...string) {
	ctx := context.Background()
	if len(refs) == 0 {
		b.cache.Invalidate()
		b.diag.Log(ctx, opInvalidate, "*", diag.Success)
		return
	}

	cl := b.state().classifier
	for _, ref := range refs {
		id, ok := cl.Classify(ref)
		if !ok {
			b.diag.Log(ctx, opInvalidate, ref, diag.NotEntity)
			continue
		}
		b.cache.Invalidate(id)
		b.diag.Log(ctx, opInvalidate, id, diag.Success)
	}
}

// IsEntityReference tells whether the reference is owned by the backend
func (b *Bridge) IsEntityReference(ref string) bool {
	return b.state().classifier.IsEntityReference(ref)
}

// classify classifies a reference, and logs the outcome
func (b *Bridge) classify(ctx context.Context, st state, ref string) (string, bool) {
	id, ok := st.classifier.Classify(ref)
	if !ok {
		b.diag.Log(ctx, opClassify, ref, diag.NotEntity)
		return "", false
	}
	b.diag.Log(ctx, opClassify, id, diag.Success)
	return id, true
}

// done logs the outcome of a host protocol operation
func (b *Bridge) done(ctx context.Context, op, id string, err error, attrs ...any) {
	if err != nil {
		b.diag.Error(ctx, op, id, err, attrs...)
		return
	}
	b.diag.Log(ctx, op, id, diag.Success, attrs...)
}

// Operation names, as they appear in diagnostics
const (
	opCreateIdentifier  = "_CreateIdentifier"
	opResolve           = "_Resolve"
	opGetExtension      = "_GetExtension"
	opGetAssetInfo      = "_GetAssetInfo"
	opOpenAsset         = "_OpenAsset"
	opGetModTimestamp   = "_GetModificationTimestamp"
	opOpenAssetForWrite = "_OpenAssetForWrite"
	opResolveEntity     = "resolveEntity"

	opClassify       = "classify"
	opCacheGet       = "cacheGet"
	opEnsureCapable  = "ensureCapable"
	opBackendResolve = "backendResolve"
	opCacheStore     = "cacheStore"
	opInvalidate     = "invalidate"
)
