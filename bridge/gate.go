package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/internal/diag"
	"github.com/pkg/errors"
)

// gate remembers what a backend can do.  Each capability is answered by the
// backend at most once;  concurrent first callers wait for a single query.
//
// A backend that cannot be queried, or that fails a request as a whole, is
// latched as unavailable, and stays so until the bridge is reconfigured.
// A query abandoned because the caller's context ended is neither remembered
// nor latched.
type gate struct {
	backend assetresolv.Backend

	mu      sync.Mutex
	answers map[assetresolv.Capability]*answer
	down    error
}

type answer struct {
	mu    sync.Mutex
	known bool
	ok    bool
}

func newGate(backend assetresolv.Backend) *gate {
	return &gate{
		backend: backend,
		answers: make(map[assetresolv.Capability]*answer),
	}
}

func (g *gate) answer(c assetresolv.Capability) (*answer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.down != nil {
		return nil, g.down
	}

	a, ok := g.answers[c]
	if !ok {
		a = &answer{}
		g.answers[c] = a
	}
	return a, nil
}

func (g *gate) latched() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.down
}

// unavailable latches the backend as unavailable due to err, unless it already is
func (g *gate) unavailable(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down == nil {
		g.down = err
	}
}

// ensure fails unless the backend declares the given capability
func (g *gate) ensure(ctx context.Context, c assetresolv.Capability) *assetresolv.Error {
	a, down := g.answer(c)
	if down != nil {
		return backendDown(opEnsureCapable, down)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.known {
		// Whoever held the answer before us may have latched the backend
		if down := g.latched(); down != nil {
			return backendDown(opEnsureCapable, down)
		}

		ok, err := g.backend.HasCapability(ctx, c)
		if err != nil {
			if interrupted(ctx, err) {
				return abandoned(opEnsureCapable, err)
			}
			g.unavailable(err)
			return backendDown(opEnsureCapable, err)
		}
		a.known, a.ok = true, ok
	}

	if !a.ok {
		return &assetresolv.Error{
			Kind: assetresolv.KindCapability,
			Op:   opEnsureCapable,
			Err:  fmt.Errorf("%s does not support %s", g.backend.Identifier(), c),
		}
	}

	return nil
}

// interrupted tells whether err is the caller's context ending, rather than
// something wrong with the backend
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func backendDown(op string, err error) *assetresolv.Error {
	return &assetresolv.Error{
		Kind: assetresolv.KindBackendUnavailable,
		Op:   op,
		Err:  err,
	}
}

// abandoned is the failure of a single call whose context ended
func abandoned(op string, err error) *assetresolv.Error {
	return &assetresolv.Error{
		Kind: assetresolv.KindUnknown,
		Op:   op,
		Err:  err,
	}
}

// ensureCapable checks a capability on behalf of an operation on id, and logs the outcome
func (b *Bridge) ensureCapable(ctx context.Context, st state, id string, c assetresolv.Capability) error {
	if e := st.gate.ensure(ctx, c); e != nil {
		e.Identifier = id
		b.diag.Error(ctx, opEnsureCapable, id, e, "capability", c.String())
		return e
	}
	b.diag.Log(ctx, opEnsureCapable, id, diag.Success, "capability", c.String())
	return nil
}
