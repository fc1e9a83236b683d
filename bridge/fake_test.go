package bridge_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/birkland/assetresolv"
)

// fakeBackend is an in memory backend that counts what is asked of it
type fakeBackend struct {
	mu       sync.Mutex
	caps     map[assetresolv.Capability]bool
	entities map[string]assetresolv.Entity
	capCalls map[assetresolv.Capability]int
	batches  [][]string

	capErr     error
	resolveErr error
	gate       chan struct{} // if not nil, Resolve blocks until closed
	capGate    chan struct{} // if not nil, HasCapability blocks until closed
}

// wait blocks until gate is closed, ctx ends, or a while has passed
func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return ctx.Err()
	}
	select {
	case <-gate:
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
	return ctx.Err()
}

func newFake(caps ...assetresolv.Capability) *fakeBackend {
	f := &fakeBackend{
		caps:     make(map[assetresolv.Capability]bool),
		entities: make(map[string]assetresolv.Entity),
		capCalls: make(map[assetresolv.Capability]int),
	}
	for _, c := range caps {
		f.caps[c] = true
	}
	return f
}

func (f *fakeBackend) with(name string, e assetresolv.Entity) *fakeBackend {
	f.entities[name] = e
	return f
}

func (f *fakeBackend) Identifier() string {
	return "test.fake"
}

func (f *fakeBackend) Scheme() string {
	return "bal"
}

func (f *fakeBackend) HasCapability(ctx context.Context, c assetresolv.Capability) (bool, error) {
	f.mu.Lock()
	f.capCalls[c]++
	f.mu.Unlock()

	if err := wait(ctx, f.capGate); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capErr != nil {
		return false, f.capErr
	}
	return f.caps[c], nil
}

func (f *fakeBackend) Resolve(ctx context.Context, refs []string) ([]assetresolv.BatchResult, error) {
	if err := wait(ctx, f.gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, refs)

	if f.resolveErr != nil {
		return nil, f.resolveErr
	}

	results := make([]assetresolv.BatchResult, len(refs))
	for i, ref := range refs {
		name := strings.TrimPrefix(ref, "bal:///")
		switch e, ok := f.entities[name]; {
		case name == "" || name == ref:
			results[i].Err = &assetresolv.BatchElementError{
				Code:    assetresolv.CodeMalformedEntityReference,
				Message: "malformed " + ref,
			}
		case !ok:
			results[i].Err = &assetresolv.BatchElementError{
				Code:    assetresolv.CodeEntityResolutionError,
				Message: "no entity " + name,
			}
		default:
			results[i].Entity = e
		}
	}
	return results, nil
}

func (f *fakeBackend) resolveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeBackend) capabilityCalls(c assetresolv.Capability) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capCalls[c]
}
