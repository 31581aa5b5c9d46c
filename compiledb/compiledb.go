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

// Package compiledb reads a Clang-style compilation database and exposes the
// list of translation units the pipeline should have fragments for. The core
// never invokes a compiler itself; it only needs the database to know which
// source files exist and when they were last modified, so the cache layer
// can key fragments by source mtime.
package compiledb

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
)

// Entry mirrors one record of compile_commands.json.
type Entry struct {
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	File      string   `json:"file"`
	Directory string   `json:"directory"`
	Output    string   `json:"output,omitempty"`
}

const cc1Flag string = "-cc1"

// ContainsCC1 reports whether the entry is already a frontend-only invocation,
// which the extractor stage would otherwise have to strip before replaying it.
func (e Entry) ContainsCC1() bool {
	for _, v := range e.Arguments {
		if v == cc1Flag {
			return true
		}
	}
	return false
}

// ReadFromFile parses a compile_commands.json file into its entries.
func ReadFromFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		glog.Errorf("compiledb: open %s: %v", path, err)
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("compiledb: read %s: %v", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("compiledb: unmarshal %s: %v", path, err)
	}
	return entries, nil
}

// SourceFiles returns the distinct set of translation-unit source paths named
// by the database, in first-seen order so downstream logs stay stable.
func SourceFiles(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.File == "" {
			continue
		}
		if _, ok := seen[e.File]; ok {
			continue
		}
		seen[e.File] = struct{}{}
		files = append(files, e.File)
	}
	return files
}
