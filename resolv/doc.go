// Package resolv provides facilities for classifying asset references and carrying
// the resolution context of a document open.  A Classifier decides whether a reference
// is an entity reference owned by an asset management backend, and canonicalizes it
// if so.  Anything else is left for default path resolution.
package resolv
