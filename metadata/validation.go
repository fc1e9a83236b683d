package metadata

import (
	"fmt"
	"strings"
)

var knownCapabilities = map[string]bool{
	"resolution": true,
	"publishing": true,
}

// Validate verifies whether library metadata is internally consistent.
// A positive result (no error returned) means only that the library reflects a plausible
// internal state.  It does not imply that the locations it names actually exist.
//
// Internally consistent means:
//
// Every declared capability is one a bridge knows how to ask about.
//
// Entity names are non-empty, and contain no query ('?') or leading solidus, since
// the name is the path component of an entity reference.
//
// Every entity has at least one version.
func (l *Library) Validate() error {

	for _, c := range l.Capabilities {
		if !knownCapabilities[strings.ToLower(c)] {
			return fmt.Errorf("unknown capability '%s'", c)
		}
	}

	for _, name := range l.Names() {
		if err := ValidateName(name); err != nil {
			return err
		}
		if len(l.Entities[name].Versions) == 0 {
			return fmt.Errorf("entity '%s' has no versions", name)
		}
	}

	return nil
}

// ValidateName verifies that an entity name can be the path component of an
// entity reference
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("entity name is empty")
	case strings.ContainsRune(name, '?'):
		return fmt.Errorf("entity name '%s' contains a query", name)
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("entity name '%s' has a leading solidus", name)
	}
	return nil
}
