package stage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/birkland/assetresolv"
	"github.com/pkg/errors"
)

// Format writes prims in the text format Parse reads
func Format(w io.Writer, defaultPrim string, prims []*Prim) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "#usda 1.0")
	if defaultPrim != "" {
		fmt.Fprintf(bw, "(\n    defaultPrim = %q\n)\n", defaultPrim)
	}
	for _, p := range prims {
		fmt.Fprintln(bw)
		formatPrim(bw, p, 0)
	}

	return bw.Flush()
}

func formatPrim(w io.Writer, p *Prim, depth int) {
	indent := strings.Repeat("    ", depth)

	fmt.Fprintf(w, "%sdef ", indent)
	if p.Type != "" {
		fmt.Fprintf(w, "%s ", p.Type)
	}
	fmt.Fprintf(w, "%q", p.Name)

	if len(p.References) > 0 {
		refs := make([]string, len(p.References))
		for i, r := range p.References {
			refs[i] = "@" + r + "@"
		}
		fmt.Fprintf(w, " (\n%s    references = [%s]\n%s)", indent, strings.Join(refs, ", "), indent)
	}
	fmt.Fprintf(w, "\n%s{\n", indent)

	names := make([]string, 0, len(p.Attributes))
	for name := range p.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s    custom %s = %s\n", indent, name, p.Attributes[name])
	}

	for i, c := range p.Children {
		if i > 0 || len(names) > 0 {
			fmt.Fprintln(w)
		}
		formatPrim(w, c, depth+1)
	}

	fmt.Fprintf(w, "%s}\n", indent)
}

// CreateNew creates a new layer holding the given prims, the way a host creates
// a layer:  the reference is turned into an identifier, which is opened for
// writing.  It returns the identifier of the new layer.
func CreateNew(ctx context.Context, r assetresolv.Resolver, ref string, prims ...*Prim) (string, error) {
	id, err := r.CreateIdentifier(ctx, ref, "")
	if err != nil {
		return "", errors.Wrapf(err, "could not create layer %s", ref)
	}

	w, err := r.OpenAssetForWrite(ctx, id)
	if err != nil {
		return "", errors.Wrapf(err, "could not create layer %s", id)
	}

	var defaultPrim string
	if len(prims) > 0 {
		defaultPrim = prims[0].Name
	}

	if err = Format(w, defaultPrim, prims); err != nil {
		_ = w.Rollback()
		return "", errors.Wrapf(err, "could not write layer %s", id)
	}

	if err = w.Close(); err != nil {
		return "", errors.Wrapf(err, "could not commit layer %s", id)
	}
	return id, nil
}
