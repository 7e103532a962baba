// Package config loads the optional host configuration file: module
// search paths and allocator backing, layered under CLI flags per the
// usual precedence (flags > file > built-in defaults).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HostConfig is the on-disk shape of the optional YAML config file.
type HostConfig struct {
	ModuleSearchPaths []string `yaml:"module_search_paths"`
	AllocatorBacking  string   `yaml:"allocator_backing"`
	MaxParallel       int      `yaml:"max_parallel"`
}

// Defaults returns the built-in configuration used when no file is
// present and no flags override it.
func Defaults() HostConfig {
	return HostConfig{
		ModuleSearchPaths: []string{"./modules"},
		AllocatorBacking:  "anonymous",
		MaxParallel:       0,
	}
}

// Load reads and parses a YAML host config file. A missing file is not
// an error: it simply means Defaults() (as overridden by CLI flags)
// apply.
func Load(path string) (HostConfig, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge layers override on top of base: any non-zero field in override
// replaces the corresponding field in base. Used to apply CLI flags over
// a loaded (or default) HostConfig.
func Merge(base HostConfig, override HostConfig) HostConfig {
	out := base
	if len(override.ModuleSearchPaths) > 0 {
		out.ModuleSearchPaths = override.ModuleSearchPaths
	}
	if override.AllocatorBacking != "" {
		out.AllocatorBacking = override.AllocatorBacking
	}
	if override.MaxParallel != 0 {
		out.MaxParallel = override.MaxParallel
	}
	return out
}
