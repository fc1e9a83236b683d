package metadata

import (
	"encoding/json"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// LibraryFile is the conventional name of a library file
const LibraryFile = "bal_library.json"

// Library location variables
const (
	VarLibraryDir    = "${bal_library_dir}"
	VarLibraryDirURL = "${bal_library_dir_url}"
)

// Library errors, returned (possibly wrapped) by Lookup
var (
	ErrNoEntity   = errors.New("entity not found")
	ErrNoVersion  = errors.New("entity version not found")
	ErrNoLocation = errors.New("entity has no locatable content")
)

// DefaultCapabilities are assumed for a library that does not declare any
var DefaultCapabilities = []string{"resolution"}

// Library defines the contents of an asset library, as defined by a BAL json file
type Library struct {
	Capabilities []string          `json:"capabilities"`
	Entities     map[string]Entity `json:"entities"`

	dir string // directory containing the library file, if read from one
}

// Entity is a named asset in the library
type Entity struct {
	Versions []Version `json:"versions"`
}

// Version is one version of an entity's content
type Version struct {
	Location string            `json:"location,omitempty"`
	Modified *time.Time        `json:"modified,omitempty"`
	Info     map[string]string `json:"info,omitempty"`
}

// NewLibrary creates an empty library declaring the given capabilities
func NewLibrary(capabilities ...string) *Library {
	return &Library{
		Capabilities: append([]string{}, capabilities...),
		Entities:     make(map[string]Entity),
	}
}

// Parse parses a byte stream into library metadata
func Parse(r io.Reader, l *Library) error {
	err := json.NewDecoder(r).Decode(l)
	if err != nil {
		return errors.Wrap(err, "could not decode json library")
	}
	if l.Entities == nil {
		l.Entities = make(map[string]Entity)
	}
	return nil
}

// ReadLibrary reads and validates the library file at the given path
func ReadLibrary(path string) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not calculate absolute path of %s", path)
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open library at %s", abs)
	}
	defer file.Close()

	lib := &Library{}
	if err = Parse(file, lib); err != nil {
		return nil, errors.Wrapf(err, "could not parse library at %s", abs)
	}
	lib.dir = filepath.Dir(abs)

	if err = lib.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid library at %s", abs)
	}

	return lib, nil
}

// Serialize writes the contents of the library to json
func (l *Library) Serialize(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// Dir is the directory library variables expand to
func (l *Library) Dir() string {
	return l.dir
}

// SetDir sets the directory library variables expand to
func (l *Library) SetDir(dir string) {
	l.dir = dir
}

// Declared returns the capabilities declared by the library, or the defaults
// if it declares none.
func (l *Library) Declared() []string {
	if l.Capabilities == nil {
		return DefaultCapabilities
	}
	return l.Capabilities
}

// Supports tells whether the library declares the named capability
func (l *Library) Supports(capability string) bool {
	for _, c := range l.Declared() {
		if strings.EqualFold(c, capability) {
			return true
		}
	}
	return false
}

// Names lists entity names, sorted
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Entities))
	for name := range l.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Put adds a new version of the named entity, creating the entity if needed,
// and returns the new version number (1-based).
func (l *Library) Put(name string, v Version) int {
	if l.Entities == nil {
		l.Entities = make(map[string]Entity)
	}
	e := l.Entities[name]
	e.Versions = append(e.Versions, v)
	l.Entities[name] = e
	return len(e.Versions)
}

// Lookup finds a version of an entity.  Version numbers are 1-based;  zero
// selects the latest version.  The location of the returned version is expanded.
func (l *Library) Lookup(name string, version int) (Version, error) {
	e, ok := l.Entities[name]
	if !ok {
		return Version{}, errors.Wrapf(ErrNoEntity, "'%s'", name)
	}

	if version == 0 {
		version = len(e.Versions)
	}
	if version < 1 || version > len(e.Versions) {
		return Version{}, errors.Wrapf(ErrNoVersion, "'%s' v%d", name, version)
	}

	v := e.Versions[version-1]
	if v.Location == "" {
		return Version{}, errors.Wrapf(ErrNoLocation, "'%s' v%d", name, version)
	}
	v.Location = l.Expand(v.Location)

	return v, nil
}

// Expand substitutes library variables in s
func (l *Library) Expand(s string) string {
	dirURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(l.dir)}).String()
	return strings.NewReplacer(
		VarLibraryDirURL, dirURL,
		VarLibraryDir, l.dir,
	).Replace(s)
}
