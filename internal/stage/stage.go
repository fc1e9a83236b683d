// Package stage is a minimal host document system.  It opens layers through
// an assetresolv.Resolver the way a host would (the full sequence of resolver
// callbacks for every layer), and composes the references between them.
package stage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/resolv"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Extension of the layers this package understands
const Extension = "usda"

// Layer is a parsed layer file
type Layer struct {
	Identifier  string
	Location    string
	Info        assetresolv.Info
	ModTime     time.Time // zero if unknown
	DefaultPrim string
	Prims       []*Prim
}

// Prim is a named, typed node with attributes, children, and references to
// other layers.
type Prim struct {
	Name       string
	Type       string
	Path       string
	Attributes map[string]string // verbatim values
	References []string          // as authored
	Children   []*Prim
}

// Child returns the named child, or nil
func (p *Prim) Child(name string) *Prim {
	for _, c := range p.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (p *Prim) clone(path string) *Prim {
	c := &Prim{
		Name:       p.Name,
		Type:       p.Type,
		Path:       path,
		Attributes: make(map[string]string, len(p.Attributes)),
		References: append([]string(nil), p.References...),
	}
	for k, v := range p.Attributes {
		c.Attributes[k] = v
	}
	for _, child := range p.Children {
		c.Children = append(c.Children, child.clone(path+"/"+child.Name))
	}
	return c
}

// merge adds the opinions of src that p does not already have
func (p *Prim) merge(src *Prim) {
	if p.Type == "" {
		p.Type = src.Type
	}
	for k, v := range src.Attributes {
		if _, ok := p.Attributes[k]; !ok {
			p.Attributes[k] = v
		}
	}
	for _, child := range src.Children {
		if mine := p.Child(child.Name); mine != nil {
			mine.merge(child)
			continue
		}
		p.Children = append(p.Children, child.clone(p.Path+"/"+child.Name))
	}
}

// defaultPrim is what a reference to the layer brings in
func (l *Layer) defaultPrim() *Prim {
	for _, p := range l.Prims {
		if p.Name == l.DefaultPrim {
			return p
		}
	}
	if len(l.Prims) > 0 {
		return l.Prims[0]
	}
	return nil
}

// CompositionError is a reference that could not be composed.  The prim
// holding it is left without the referenced content.
type CompositionError struct {
	Prim      string // path of the referencing prim
	Reference string // as authored
	Anchor    string // identifier of the referencing layer
	Err       error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("could not compose @%s@ on %s in %s: %s", e.Reference, e.Prim, e.Anchor, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// ErrCycle is the cause of composition errors for cyclic references
var ErrCycle = errors.New("reference cycle")

// Stage is a composed layer
type Stage struct {
	Root   *Layer
	Prims  []*Prim // composed
	Layers []*Layer
	Errors []*CompositionError
}

// Prim finds a composed prim by path, e.g. /World/Car1
func (s *Stage) Prim(path string) *Prim {
	var found *Prim
	walk(s.Prims, func(p *Prim) bool {
		if p.Path == path {
			found = p
			return false
		}
		return true
	})
	return found
}

// Walk visits every composed prim, depth first, until f returns false
func (s *Stage) Walk(f func(*Prim) bool) {
	walk(s.Prims, f)
}

func walk(prims []*Prim, f func(*Prim) bool) bool {
	for _, p := range prims {
		if !f(p) || !walk(p.Children, f) {
			return false
		}
	}
	return true
}

// Open opens and composes the layer with the given reference.  Failure to open
// the root layer fails; references that cannot be composed are reported in
// the stage's Errors.  The search paths of cxt, if given, apply to every
// resolution.
func Open(ctx context.Context, r assetresolv.Resolver, ref string, cxt *resolv.Cxt) (*Stage, error) {
	if cxt != nil {
		ctx = resolv.WithCxt(ctx, cxt)
	}

	id, err := r.CreateIdentifier(ctx, ref, "")
	if err != nil {
		return nil, errors.Wrapf(err, "could not open stage %s", ref)
	}

	c := &composer{
		r:      r,
		layers: make(map[string]*loaded),
	}

	root, err := c.layer(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open stage %s", ref)
	}

	s := &Stage{Root: root}
	s.Prims = make([]*Prim, len(root.Prims))

	var g errgroup.Group
	for i, p := range root.Prims {
		i, p := i, p
		g.Go(func() error {
			s.Prims[i] = c.compose(ctx, root, p, p.Path, []string{id})
			return nil
		})
	}
	_ = g.Wait()

	s.Layers = c.used()
	s.Errors = c.failures()
	return s, nil
}

type loaded struct {
	once  sync.Once
	layer *Layer
	err   error
}

// composer composes one stage.  Layers are loaded at most once per stage.
type composer struct {
	r assetresolv.Resolver

	mu     sync.Mutex
	layers map[string]*loaded
	errs   []*CompositionError
}

func (c *composer) layer(ctx context.Context, id string) (*Layer, error) {
	c.mu.Lock()
	l, ok := c.layers[id]
	if !ok {
		l = &loaded{}
		c.layers[id] = l
	}
	c.mu.Unlock()

	l.once.Do(func() {
		l.layer, l.err = load(ctx, c.r, id)
	})
	return l.layer, l.err
}

func (c *composer) fail(e *CompositionError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, e)
}

func (c *composer) failures() []*CompositionError {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Slice(c.errs, func(i, j int) bool {
		if c.errs[i].Prim != c.errs[j].Prim {
			return c.errs[i].Prim < c.errs[j].Prim
		}
		return c.errs[i].Reference < c.errs[j].Reference
	})
	return c.errs
}

func (c *composer) used() []*Layer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var layers []*Layer
	for _, l := range c.layers {
		if l.layer != nil {
			layers = append(layers, l.layer)
		}
	}
	sort.Slice(layers, func(i, j int) bool {
		return layers[i].Identifier < layers[j].Identifier
	})
	return layers
}

// compose returns the composed form of prim p of layer l, placed at path.
// The stack holds the identifiers of the layers being composed, outermost first.
func (c *composer) compose(ctx context.Context, l *Layer, p *Prim, path string, stack []string) *Prim {
	composed := &Prim{
		Name:       p.Name,
		Type:       p.Type,
		Path:       path,
		Attributes: make(map[string]string, len(p.Attributes)),
		References: append([]string(nil), p.References...),
		Children:   make([]*Prim, len(p.Children)),
	}
	for k, v := range p.Attributes {
		composed.Attributes[k] = v
	}

	referenced := make([]*Prim, len(p.References))

	var g errgroup.Group
	for i, child := range p.Children {
		i, child := i, child
		g.Go(func() error {
			composed.Children[i] = c.compose(ctx, l, child, path+"/"+child.Name, stack)
			return nil
		})
	}
	for i, ref := range p.References {
		i, ref := i, ref
		g.Go(func() error {
			referenced[i] = c.reference(ctx, l, ref, path, stack)
			return nil
		})
	}
	_ = g.Wait()

	// Earlier references are stronger
	for _, target := range referenced {
		if target != nil {
			composed.merge(target)
		}
	}

	return composed
}

// reference composes the default prim of the layer ref points to
func (c *composer) reference(ctx context.Context, l *Layer, ref, path string, stack []string) *Prim {
	fail := func(err error) *Prim {
		c.fail(&CompositionError{Prim: path, Reference: ref, Anchor: l.Identifier, Err: err})
		return nil
	}

	id, err := c.r.CreateIdentifier(ctx, ref, l.Identifier)
	if err != nil {
		return fail(err)
	}

	for _, seen := range stack {
		if seen == id {
			return fail(errors.Wrapf(ErrCycle, "%s is already being composed", id))
		}
	}

	target, err := c.layer(ctx, id)
	if err != nil {
		return fail(err)
	}

	dp := target.defaultPrim()
	if dp == nil {
		return fail(errors.Errorf("%s has no prim to reference", id))
	}

	inner := append(append([]string(nil), stack...), id)
	return c.compose(ctx, target, dp, path, inner)
}

// load opens a layer with the host's sequence of resolver callbacks
func load(ctx context.Context, r assetresolv.Resolver, id string) (*Layer, error) {
	loc, err := r.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	ext, err := r.GetExtension(ctx, id)
	if err != nil {
		return nil, err
	}
	if ext != Extension {
		return nil, errors.Errorf("%s resolves to %s, which is not a %s layer", id, loc, Extension)
	}

	info, err := r.GetAssetInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, err := r.OpenAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := Parse(rc)
	rc.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", loc)
	}

	mod, ok, err := r.GetModificationTimestamp(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		l.ModTime = mod
	}

	l.Identifier = id
	l.Location = loc
	l.Info = info
	return l, nil
}
