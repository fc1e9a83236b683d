package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/birkland/assetresolv/config"
	"github.com/go-test/deep"
)

func TestLoadEnv(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		verbose bool
		trace   []string
		paths   []string
		format  string
	}{
		{
			name:   "defaults",
			format: "text",
		},
		{
			name:    "tf debug symbol",
			env:     map[string]string{"TF_DEBUG": "OTHER OAIO_RESOLVER"},
			verbose: true,
			format:  "text",
		},
		{
			name:   "other tf debug symbol",
			env:    map[string]string{"TF_DEBUG": "OAIO_RESOLVER_X"},
			format: "text",
		},
		{
			name:    "resolver debug",
			env:     map[string]string{"OAIO_RESOLVER_DEBUG": "true", "OAIO_LOG_FORMAT": "json"},
			verbose: true,
			format:  "json",
		},
		{
			name:   "trace and search paths",
			env:    map[string]string{"OAIO_RESOLVER_TRACE": "_Resolve, cacheGet,", "OAIO_SEARCH_PATH": "/a" + string(os.PathListSeparator) + "/b"},
			trace:  []string{"_Resolve", "cacheGet"},
			paths:  []string{"/a", "/b"},
			format: "text",
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			for _, k := range []string{"TF_DEBUG", "OAIO_RESOLVER_DEBUG", "OAIO_RESOLVER_TRACE", "OAIO_LOG_FORMAT", "OAIO_SEARCH_PATH", "OPENASSETIO_DEFAULT_CONFIG"} {
				t.Setenv(k, c.env[k])
				if _, ok := c.env[k]; !ok {
					os.Unsetenv(k)
				}
			}

			e, err := config.LoadEnv()
			if err != nil {
				t.Fatal(err)
			}

			if e.VerboseEnabled() != c.verbose {
				t.Errorf("verbose: got %v, wanted %v", e.VerboseEnabled(), c.verbose)
			}
			if e.LogFormat != c.format {
				t.Errorf("format: got %q, wanted %q", e.LogFormat, c.format)
			}
			if diff := deep.Equal(e.Trace, c.trace); diff != nil {
				t.Error(diff)
			}
			if diff := deep.Equal(e.SearchPaths, c.paths); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestLoadEnvBadBool(t *testing.T) {
	t.Setenv("OAIO_RESOLVER_DEBUG", "maybe")
	if _, err := config.LoadEnv(); err == nil {
		t.Fatal("expected an error for an unparseable bool")
	}
}

func TestLoadBackend(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name     string
		file     string
		content  string
		id       string
		settings map[string]string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `[manager]
identifier = "org.openassetio.examples.manager.bal"

[manager.settings]
library_path = "${config_dir}/bal_library.json"
`,
			id:       "org.openassetio.examples.manager.bal",
			settings: map[string]string{"library_path": filepath.Join(dir, "bal_library.json")},
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `manager:
  identifier: org.openassetio.examples.manager.redis
  settings:
    address: localhost:6379
    prefix: shots
`,
			id:       "org.openassetio.examples.manager.redis",
			settings: map[string]string{"address": "localhost:6379", "prefix": "shots"},
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(dir, c.file)
			if err := os.WriteFile(path, []byte(c.content), 0664); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.LoadBackend(path)
			if err != nil {
				t.Fatal(err)
			}

			if cfg.Identifier != c.id {
				t.Errorf("got identifier %q, wanted %q", cfg.Identifier, c.id)
			}
			if diff := deep.Equal(cfg.Settings, c.settings); diff != nil {
				t.Error(diff)
			}
			if cfg.Dir != dir {
				t.Errorf("got dir %q, wanted %q", cfg.Dir, dir)
			}
		})
	}
}

func TestBackendPath(t *testing.T) {
	cfg := config.Backend{
		Dir: "/etc/assets",
		Settings: map[string]string{
			"relative": "lib/bal_library.json",
			"absolute": "/srv/bal_library.json",
		},
	}

	if got := cfg.Path("relative"); got != filepath.Join("/etc/assets", "lib/bal_library.json") {
		t.Errorf("relative path resolved to %s", got)
	}
	if got := cfg.Path("absolute"); got != "/srv/bal_library.json" {
		t.Errorf("absolute path resolved to %s", got)
	}
	if got := cfg.Path("missing"); got != "" {
		t.Errorf("missing path resolved to %s", got)
	}
	if got := cfg.Setting("missing", "def"); got != "def" {
		t.Errorf("got default %s", got)
	}
}

func TestLoadBackendErrors(t *testing.T) {
	dir := t.TempDir()
	noID := filepath.Join(dir, "noid.toml")
	if err := os.WriteFile(noID, []byte("[manager.settings]\nlibrary_path = \"x\"\n"), 0664); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{noID, filepath.Join(dir, "missing.toml")} {
		if _, err := config.LoadBackend(path); err == nil {
			t.Errorf("expected an error loading %s", path)
		}
	}
}
