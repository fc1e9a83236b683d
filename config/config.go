// Package config reads the environment switches of the bridge, and the backend
// configuration file they point to.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DebugSymbol enables verbose diagnostics when listed in TF_DEBUG
const DebugSymbol = "OAIO_RESOLVER"

// Env holds the environment switches
type Env struct {
	Debug       []string `env:"TF_DEBUG" envSeparator:" "`
	Verbose     bool     `env:"OAIO_RESOLVER_DEBUG"`
	Trace       []string `env:"OAIO_RESOLVER_TRACE" envSeparator:","`
	LogFormat   string   `env:"OAIO_LOG_FORMAT" envDefault:"text"`
	ConfigPath  string   `env:"OPENASSETIO_DEFAULT_CONFIG"`
	SearchPaths []string `env:"-"` // OAIO_SEARCH_PATH, split on the OS path list separator
}

// LoadEnv parses the environment
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, errors.Wrap(err, "could not parse environment")
	}

	if raw, ok := os.LookupEnv("OAIO_SEARCH_PATH"); ok {
		e.SearchPaths = filepath.SplitList(raw)
	}
	e.SearchPaths = nonEmpty(e.SearchPaths)
	e.Trace = nonEmpty(e.Trace)

	return e, nil
}

// VerboseEnabled tells whether successful operations should be logged too
func (e Env) VerboseEnabled() bool {
	if e.Verbose {
		return true
	}
	for _, sym := range e.Debug {
		if strings.TrimSpace(sym) == DebugSymbol {
			return true
		}
	}
	return false
}

func nonEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Backend is the configuration of an asset management backend
type Backend struct {
	Identifier string
	Settings   map[string]string
	Dir        string // directory of the configuration file
}

// VarConfigDir is substituted in settings with the configuration file's directory
const VarConfigDir = "${config_dir}"

// LoadBackend reads a backend configuration file.  The format (toml, yaml, json)
// follows from the extension.  For example:
//
//	[manager]
//	identifier = "org.openassetio.examples.manager.bal"
//
//	[manager.settings]
//	library_path = "${config_dir}/bal_library.json"
func LoadBackend(path string) (Backend, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Backend{}, errors.Wrapf(err, "could not calculate absolute path of %s", path)
	}

	v := viper.New()
	v.SetConfigFile(abs)
	if err = v.ReadInConfig(); err != nil {
		return Backend{}, errors.Wrapf(err, "could not read backend config %s", abs)
	}

	cfg := Backend{
		Identifier: strings.TrimSpace(v.GetString("manager.identifier")),
		Settings:   make(map[string]string),
		Dir:        filepath.Dir(abs),
	}
	if cfg.Identifier == "" {
		return Backend{}, errors.Errorf("backend config %s names no manager.identifier", abs)
	}

	for k, val := range v.GetStringMapString("manager.settings") {
		cfg.Settings[k] = strings.ReplaceAll(val, VarConfigDir, cfg.Dir)
	}

	return cfg, nil
}

// Setting returns a setting, or def if absent
func (b Backend) Setting(key, def string) string {
	if v, ok := b.Settings[key]; ok && v != "" {
		return v
	}
	return def
}

// Path returns a setting as a path;  relative paths are relative to the
// configuration file's directory.
func (b Backend) Path(key string) string {
	p := b.Settings[key]
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.Dir, p)
}
