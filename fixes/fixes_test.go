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

package fixes

import (
	"os"
	"path/filepath"
	"testing"

	"excflow.dev/excflow/profile"
)

func TestLoadExpandsToGeneralizedContexts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixes.json")
	// legacy=3 is compact 2, the most specific non-baseline level.
	data := `[
		{
			"repo": "org/project",
			"commits": [
				{
					"msg": "fix exception leak",
					"fix_1": {"USR": "f", "Context": [3], "Caller": {"is_noexcept": true}}
				}
			]
		}
	]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	checked, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !checked.IsClear("f", 2) {
		t.Error("expected compact level 2 to be clear directly")
	}
	for _, level := range profile.CheckedContexts(2) {
		if !checked.IsClear("f", level) {
			t.Errorf("expected generalized level %d to be clear", level)
		}
	}
	if checked.IsClear("other", 2) {
		t.Error("expected an unreviewed USR to report not clear")
	}
}

func TestLoadMergesMultipleFixesAcrossReposAndCommits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixes.json")
	data := `[
		{
			"repo": "org/a",
			"commits": [
				{
					"fix_1": {"USR": "f", "Context": [1], "Caller": {"is_noexcept": false}},
					"fix_2": {"USR": "g", "Context": [5, 7], "Caller": {"is_noexcept": true}}
				}
			]
		},
		{
			"repo": "org/b",
			"commits": [
				{"fix_1": {"USR": "f", "Context": [9]}}
			]
		}
	]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	checked, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !checked.IsClear("f", 1) {
		t.Error("expected f's legacy context 1 to be clear at compact level 1")
	}
	if !checked.IsClear("f", profile.LegacyToCompact(9)) {
		t.Error("expected f's second repo's fix to also be recorded")
	}
	if !checked.IsClear("g", profile.LegacyToCompact(5)) || !checked.IsClear("g", profile.LegacyToCompact(7)) {
		t.Error("expected both of g's contexts to be recorded")
	}
}

func TestIsClearOnUnknownUSR(t *testing.T) {
	checked := Checked{}
	if checked.IsClear("nope", 1) {
		t.Error("expected IsClear to be false for a USR never loaded")
	}
}
