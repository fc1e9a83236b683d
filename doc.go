// Package assetresolv defines the API shared by a reference-resolution bridge and
// the parties on either side of it.
//
// On one side sits a host document system, which asks a Resolver to turn the
// asset references authored in its documents into identifiers, resolved
// locations, metadata and readable content.  On the other side sits an asset
// management Backend, which owns "entity references" (identifiers carrying a
// reserved scheme, e.g. bal:///shot01) and can resolve them.  The bridge
// (see package bridge) implements Resolver, delegating entity references to a
// Backend and leaving every other reference to default filesystem resolution
// (see drivers/fs).
package assetresolv
