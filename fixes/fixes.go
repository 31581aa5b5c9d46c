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

// Package fixes consumes a reviewed-fixes file: a human reviewer's record of
// which (function, context) pairs have already been checked and found
// correct, so a later run can skip re-reporting them. Context IDs in this
// file are in the extractor's legacy odd numbering and must be remapped
// before they mean anything to package profile.
package fixes

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"excflow.dev/excflow/profile"
)

// Fix is one numbered fix_<n> record attached to a commit: the USR it
// reviews, the legacy-encoded context numbers the reviewer checked, and
// whether the reviewed function's caller is declared noexcept.
type Fix struct {
	USR     string `json:"USR"`
	Context []int  `json:"Context"`
	Caller  struct {
		IsNoexcept bool `json:"is_noexcept"`
	} `json:"Caller"`
}

// Commit holds the numbered fix_<n> records attached to one commit. Keys
// that don't match the fix_<n> pattern (a commit message, a URL, anything
// else the reviewer's tooling stamped alongside the fixes) are ignored
// rather than rejected.
type Commit struct {
	Fixes []Fix
}

func (c *Commit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if !strings.HasPrefix(key, "fix_") {
			continue
		}
		var f Fix
		if err := json.Unmarshal(value, &f); err != nil {
			return fmt.Errorf("fixes: %s: %v", key, err)
		}
		c.Fixes = append(c.Fixes, f)
	}
	return nil
}

// Repo is one repository record: every commit the reviewer examined in it.
type Repo struct {
	Name    string   `json:"repo"`
	Commits []Commit `json:"commits"`
}

// Checked holds, for a given function USR, every compact context level
// known to already be clear: either because a reviewer checked it directly,
// or because it's generalized by a level the reviewer did check.
type Checked map[string]map[int]bool

// Load reads a reviewed-fixes file — a JSON array of per-repo records, each
// holding the commits it reviewed, each commit holding its numbered fix_<n>
// records — and expands each fix's legacy contexts into the compact level
// plus every level that context generalizes to, per profile.CheckedContexts.
func Load(path string) (Checked, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixes: read %s: %v", path, err)
	}
	var repos []Repo
	if err := json.Unmarshal(data, &repos); err != nil {
		return nil, fmt.Errorf("fixes: parse %s: %v", path, err)
	}

	checked := make(Checked)
	for _, repo := range repos {
		for _, commit := range repo.Commits {
			for _, fix := range commit.Fixes {
				levels, ok := checked[fix.USR]
				if !ok {
					levels = make(map[int]bool)
					checked[fix.USR] = levels
				}
				for _, legacy := range fix.Context {
					compact := profile.LegacyToCompact(legacy)
					levels[compact] = true
					for _, generalized := range profile.CheckedContexts(compact) {
						levels[generalized] = true
					}
				}
			}
		}
	}
	return checked, nil
}

// IsClear reports whether usr has already been reviewed as correct at
// compactLevel, directly or via a broader context that subsumes it.
func (c Checked) IsClear(usr string, compactLevel int) bool {
	levels, ok := c[usr]
	if !ok {
		return false
	}
	return levels[compactLevel]
}
