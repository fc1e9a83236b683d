package resolv

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Classifier recognizes entity references by their reserved scheme.
//
// Classification is a pure function of its input: it never blocks, and never
// contacts a backend.
type Classifier struct {
	scheme string
}

// NewClassifier creates a classifier for entity references of the given scheme,
// e.g. "bal" for bal:///name references.
func NewClassifier(scheme string) Classifier {
	return Classifier{scheme: strings.ToLower(strings.TrimSuffix(scheme, ":"))}
}

// Scheme of the entity references recognized by this classifier
func (c Classifier) Scheme() string {
	return c.scheme
}

// IsEntityReference tells whether the given reference bears the entity scheme
func (c Classifier) IsEntityReference(ref string) bool {
	if c.scheme == "" || len(ref) <= len(c.scheme) {
		return false
	}
	return strings.EqualFold(ref[:len(c.scheme)], c.scheme) && ref[len(c.scheme)] == ':'
}

// Classify returns the canonical identifier of an entity reference, and false
// if the reference is not an entity reference (i.e. it should fall through
// to default resolution).
//
// Canonicalization lowercases the scheme and cleans the path component, so
// that references naming the same entity map to the same identifier.  The
// shape of the remainder is not validated; an entity reference with an empty
// path is still an entity reference.
func (c Classifier) Classify(ref string) (string, bool) {
	if !c.IsEntityReference(ref) {
		return "", false
	}

	rest := ref[len(c.scheme)+1:]

	var query string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i:]
	}

	// Keep the authority marker (//, or ///) verbatim, and clean what follows it
	prefix := ""
	for _, p := range []string{"///", "//"} {
		if strings.HasPrefix(rest, p) {
			prefix, rest = p, strings.TrimPrefix(rest, p)
			break
		}
	}

	if rest != "" {
		cleaned := path.Clean(rest)
		if cleaned == "." {
			cleaned = ""
		}
		rest = strings.TrimPrefix(cleaned, "/")
	}

	return c.scheme + ":" + prefix + rest + query, true
}

// IsRelative tells whether a non-entity reference is relative to the asset
// it is found in (as opposed to absolute, or a search path)
func IsRelative(ref string) bool {
	slashed := filepath.ToSlash(ref)
	return strings.HasPrefix(slashed, "./") || strings.HasPrefix(slashed, "../")
}

// IsSearchPath tells whether a non-entity reference is a search path, i.e.
// neither absolute nor explicitly relative, e.g. "props/chair.usda"
func IsSearchPath(ref string) bool {
	return ref != "" && !filepath.IsAbs(ref) && !IsRelative(ref) && !isURL(ref)
}

// Anchor combines a relative, non-entity reference with the resolved location of
// the asset it was found in.  The result is a location relative to that asset's
// directory.  Base may be a filesystem path or a file:// URL.
func Anchor(base, ref string) string {
	return filepath.Join(filepath.Dir(LocalPath(base)), filepath.FromSlash(ref))
}

// LocalPath converts a file:// URL into a filesystem path.  Anything else is
// returned as is.
func LocalPath(loc string) string {
	if !strings.HasPrefix(loc, "file:") {
		return loc
	}
	u, err := url.Parse(loc)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(strings.TrimPrefix(loc, "file:"), "//")
	}
	return filepath.FromSlash(u.Path)
}

func isURL(ref string) bool {
	i := strings.Index(ref, "://")
	return i > 0 && !strings.ContainsAny(ref[:i], `/\`)
}
