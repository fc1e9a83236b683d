package resolv

import "context"

// Cxt establishes a context for resolving references while a document is
// opened, i.e. the search path roots.  A Cxt is scoped to a single open and
// should not outlive it.
type Cxt struct {
	SearchPaths []string
}

// NewCxt establishes a new resolution context with the given search paths
func NewCxt(searchPaths ...string) *Cxt {
	return &Cxt{SearchPaths: searchPaths}
}

type cxtKey struct{}

// WithCxt binds a resolution context to ctx
func WithCxt(ctx context.Context, cxt *Cxt) context.Context {
	return context.WithValue(ctx, cxtKey{}, cxt)
}

// FromContext returns the resolution context bound to ctx, if any.
func FromContext(ctx context.Context) (*Cxt, bool) {
	cxt, ok := ctx.Value(cxtKey{}).(*Cxt)
	return cxt, ok && cxt != nil
}

// SearchPaths returns the search paths of the resolution context bound to ctx
func SearchPaths(ctx context.Context) []string {
	if cxt, ok := FromContext(ctx); ok {
		return cxt.SearchPaths
	}
	return nil
}
