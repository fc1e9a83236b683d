package fspath

import (
	"path"
	"path/filepath"
	"strings"
)

// Generator generates an entity name from a given relative, solidus
// delimited file path.  The resulting names are used when indexing a
// directory of content into an asset library, and become the path component
// of entity references (e.g. props/chair.usda -> bal:///props/chair).
type Generator interface {
	Generate(string) string
}

// GeneratorFunc is a function that can be used to satisfy the Generator interface
type GeneratorFunc func(string) string

// Generate a name from a given relative path
func (g GeneratorFunc) Generate(relpath string) string {
	return g(relpath)
}

// Passthrough names entities by their relative path, with any leading solidus removed.
var Passthrough = GeneratorFunc(func(relpath string) string {
	return strings.TrimLeft(filepath.ToSlash(relpath), "/")
})

// StripExt names entities by their relative path, less the file extension.
var StripExt = GeneratorFunc(func(relpath string) string {
	p := Passthrough(relpath)
	return strings.TrimSuffix(p, path.Ext(p))
})

// Base names entities by the base name of the file, less the file extension.
// Distinct files with the same base name will collide.
var Base = GeneratorFunc(func(relpath string) string {
	return path.Base(StripExt(relpath))
})
