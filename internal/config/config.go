// Package config loads droplet.toml, the file that tunes a VM run without
// recompiling: collection thresholds, trace/debug flags, the FFI library
// search path, and which baseline native functions to register. Modeled on
// the teacher's manifest.Load/FindAndLoad pair, restyled for a single VM
// tuning file instead of a project manifest.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/droplet-lang/lang/pkg/heap"
)

// GC configures the collector's trigger and growth behavior. Zero values
// mean "use the heap package's own default" (see applyDefaults).
type GC struct {
	ThresholdBytes int `toml:"threshold-bytes"`
	GrowthFactor   int `toml:"growth-factor"`
}

// FFI configures where CALL_FFI looks for shared libraries.
type FFI struct {
	LibraryPaths []string `toml:"library-paths"`
}

// Natives lists which baseline native functions not to register. An empty list
// means "register all of them" — config files exist to turn things off,
// not to require every caller to spell out the default set.
type Natives struct {
	Disable []string `toml:"disable"`
}

// Config is the decoded shape of droplet.toml.
type Config struct {
	GC      GC      `toml:"gc"`
	FFI     FFI     `toml:"ffi"`
	Natives Natives `toml:"natives"`
	Trace   bool    `toml:"trace"`
	Debug   bool    `toml:"debug"`

	// Dir is the directory containing the loaded droplet.toml, empty if
	// this Config came from Default rather than a file.
	Dir string `toml:"-"`
}

// Default returns the configuration a VM runs with absent a droplet.toml:
// spec.md §4.5's documented GC defaults, no FFI search path, every native
// enabled, tracing and debug output off.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.GC.ThresholdBytes == 0 {
		c.GC.ThresholdBytes = heap.DefaultThresholdBytes
	}
	if c.GC.GrowthFactor == 0 {
		c.GC.GrowthFactor = heap.GrowthFactor
	}
}

// Load parses droplet.toml from dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "droplet.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.applyDefaults()

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir looking for droplet.toml, loading the
// first one it finds. It returns Default(), not an error, if none exists —
// a VM should run with sensible defaults rather than fail to start.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "droplet.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// NativeEnabled reports whether the named baseline native should be
// registered under this configuration.
func (c *Config) NativeEnabled(name string) bool {
	for _, d := range c.Natives.Disable {
		if d == name {
			return false
		}
	}
	return true
}
