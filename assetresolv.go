package assetresolv

import (
	"strings"
	"time"
)

// Capability names a kind of operation an asset management backend may support
type Capability int

// Capabilities a bridge may ask a backend about
const (
	UnknownCapability Capability = iota
	Resolution
	Publishing
)

var capabilityNames = map[Capability]string{
	UnknownCapability: "unknown",
	Resolution:        "resolution",
	Publishing:        "publishing",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return capabilityNames[UnknownCapability]
}

// ParseCapability parses a capability name.  Unrecognized names parse as
// UnknownCapability
func ParseCapability(name string) Capability {
	for c, n := range capabilityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return c
		}
	}
	return UnknownCapability
}

// Info is an opaque key/value bag describing an asset.
type Info map[string]string

// Copy returns an independent copy of the info bag.
func (i Info) Copy() Info {
	if i == nil {
		return Info{}
	}
	c := make(Info, len(i))
	for k, v := range i {
		c[k] = v
	}
	return c
}

// Well known Info keys
const (
	InfoEntityReference  = "entityReference"
	InfoResolvedLocation = "resolvedLocation"
)

// Asset is the result of successfully resolving an entity reference.
//
// Assets are immutable once constructed.  Re-resolution of the same identifier
// produces a new Asset rather than modifying an existing one.
type Asset struct {
	Identifier string    // canonical entity identifier
	Location   string    // concrete, openable location (usually a filesystem path)
	Extension  string    // extension of Location, without the dot
	ModTime    time.Time // backend supplied modification time, zero if absent
	Info       Info
}

// HasModTime tells whether a modification time is known for the asset
func (a Asset) HasModTime() bool {
	return !a.ModTime.IsZero()
}
