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

// Package polymorph builds the whole-program polymorph table: for every
// overridden virtual method, the set of methods known to override it,
// directly or transitively. It merges per-translation-unit IPM fragments and
// closes the resulting override forest so the graph assembler can expand a
// single virtual call site into every reachable override.
package polymorph

import (
	"excflow.dev/excflow/fragment"
	"excflow.dev/excflow/model"
	"excflow.dev/excflow/utils"

	"github.com/golang/glog"
)

// Table is the merged, transitively-closed polymorph table: USR of an
// overridden base method -> every method known to override it.
type Table struct {
	entries map[string]*model.Poly
}

func New() *Table {
	return &Table{entries: make(map[string]*model.Poly)}
}

// Merge absorbs one IPM fragment's class records into the table. A fragment
// only records the *direct* override edges observed inside its translation
// unit; Close must run once every fragment has been merged to obtain the
// transitive closure required by the assembler.
func (t *Table) Merge(classes []fragment.ClassRecord) {
	for _, class := range classes {
		for _, method := range class.Method {
			for _, override := range method.Override {
				entry, ok := t.entries[override.Name]
				if !ok {
					entry = model.NewPoly(override.Name, override.SName)
					t.entries[override.Name] = entry
				}
				entry.AddDerived(model.DerivedMethod{Name: method.Name, SName: method.SName})
			}
		}
	}
}

// Close computes, for every entry, the transitive set of overriders: if B
// overrides A and C overrides B, then C is recorded as an (indirect)
// overrider of A too. A depth-first visited-set walk guards against the
// malformed-but-possible case of a cycle in the override graph, which would
// otherwise spin the walk forever.
func (t *Table) Close() {
	t.logCycles()

	memo := make(map[string][]model.DerivedMethod, len(t.entries))
	for usr := range t.entries {
		t.closeOne(usr, memo, make(map[string]bool))
	}
	for usr, derived := range memo {
		entry := t.entries[usr]
		entry.ResetDerived()
		for _, d := range derived {
			entry.AddDerived(d)
		}
	}
}

// closeOne returns the full transitive set of overriders of usr, memoizing
// as it goes. visiting detects a cycle among override edges; NaiveSystems'
// extractors should never emit one, but a corrupted or hand-edited fragment
// set could, so we log and truncate the walk rather than recursing forever.
func (t *Table) closeOne(usr string, memo map[string][]model.DerivedMethod, visiting map[string]bool) []model.DerivedMethod {
	if done, ok := memo[usr]; ok {
		return done
	}
	entry, ok := t.entries[usr]
	if !ok {
		return nil
	}
	if visiting[usr] {
		glog.Warningf("polymorph: cycle detected in override graph at %s, truncating", usr)
		return nil
	}
	visiting[usr] = true

	var all []model.DerivedMethod
	seen := make(map[string]bool)
	for _, d := range entry.Derived {
		if !seen[d.Name] {
			seen[d.Name] = true
			all = append(all, d)
		}
		for _, transitive := range t.closeOne(d.Name, memo, visiting) {
			if !seen[transitive.Name] {
				seen[transitive.Name] = true
				all = append(all, transitive)
			}
		}
	}
	visiting[usr] = false
	memo[usr] = all
	return all
}

// logCycles runs the same cycle detector the call graph assembler uses on
// this table's direct, pre-closure override edges, logging anything found
// before Close's own visiting-set walk truncates it. Either check alone
// would catch a cycle; running both here makes the Tarjan-based one the
// authoritative report (it names every node in the cycle, not just the
// first one revisited).
func (t *Table) logCycles() {
	direct := make(map[string][]string, len(t.entries))
	for usr, entry := range t.entries {
		names := make([]string, 0, len(entry.Derived))
		for _, d := range entry.Derived {
			names = append(names, d.Name)
		}
		direct[usr] = names
	}
	g := utils.OverrideGraph(direct)
	for _, cycle := range utils.RecursiveTarjanSCC(&g) {
		glog.Warningf("polymorph: override cycle detected: %v", cycle)
	}
}

// Overriders returns every method known to override usr, directly or
// transitively, after Close has run. A usr with no known overrides yields a
// nil slice, which callers can range over or take len of directly.
func (t *Table) Overriders(usr string) []model.DerivedMethod {
	entry, ok := t.entries[usr]
	if !ok {
		return nil
	}
	return entry.Derived
}

// Len reports the number of base methods with at least one known override.
func (t *Table) Len() int { return len(t.entries) }
