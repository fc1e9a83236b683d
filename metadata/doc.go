// Package metadata contains facilities for working with asset library metadata.
// At the moment, it is mostly a 1:1 reflection of Basic Asset Library (BAL) JSON
// files: a set of named entities, each with one or more versions, each version
// naming the location of its content.
//
// Locations may contain ${bal_library_dir} or ${bal_library_dir_url}, which expand to
// the directory containing the library file (as a path or file:// URL), so that
// libraries can be relocated along with their content.
package metadata
