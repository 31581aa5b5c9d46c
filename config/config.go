/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config holds the pipeline's checker-configuration-equivalent
// settings: the knobs that change what the core computes, as opposed to how
// it's invoked (which lives in cmd/excflow's flag parsing).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Configuration controls the pipeline's core behavior. It is loaded from a
// YAML file, mirroring the checker-configuration convention the rest of the
// pipeline's ambient tooling follows.
type Configuration struct {
	// IncludeSystemHeader records whether the extractor was asked to emit
	// functions defined in system headers into the fragments. The pipeline
	// itself does not read it: fragments are loaded as they are, and
	// system-tagged functions are only left out as caller contexts by the
	// profiler, whatever this is set to.
	IncludeSystemHeader bool `yaml:"include_system_header"`

	// ExpandVirtualCalls turns on the polymorph-table-driven synthesis of
	// one call site per known override of a virtual call's static target.
	ExpandVirtualCalls bool `yaml:"expand_virtual_calls"`

	// Strict aborts the whole run on the first malformed fragment file
	// instead of skipping it and continuing with the rest of the program.
	Strict bool `yaml:"strict"`

	// Jobs bounds how many fragment files are parsed concurrently; 0 means
	// the loader should pick based on GOMAXPROCS.
	Jobs int `yaml:"jobs"`

	// TimeoutSeconds is the per-TU extraction wall-clock limit for the
	// external extractor. The pipeline itself does not apply it; a run is
	// not time-limited.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// OutputDir is where the cache mirror and the final artifact shards are
	// written.
	OutputDir string `yaml:"output_dir"`

	// CompileCommands points at the compilation database naming the
	// translation units this run covers.
	CompileCommands string `yaml:"compile_commands"`

	// FragmentDir is the root of the ipm/icg fragment tree the extractor
	// has already populated for this run.
	FragmentDir string `yaml:"fragment_dir"`
}

// Default returns the pipeline's out-of-the-box configuration.
func Default() Configuration {
	return Configuration{
		IncludeSystemHeader: false,
		ExpandVirtualCalls:  true,
		Strict:              false,
		Jobs:                0,
		TimeoutSeconds:      0,
		OutputDir:           "output",
	}
}

// Load reads and parses a YAML configuration file, starting from Default so
// a file that only overrides a couple of fields still produces a complete
// Configuration.
func Load(path string) (Configuration, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %v", path, err)
	}
	return cfg, nil
}
