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

package utils

import "excflow.dev/excflow/model"

// CallGraphFromFns adapts the whole-program Fn map into the plain adjacency
// shape RecursiveTarjanSCC expects, so the pipeline can reuse the same cycle
// detector both for the override forest and for sanity-checking the call
// graph itself (a cycle there is an ordinary recursive-call pattern, not an
// error, but surfacing it helps explain why the propagator needed more than
// one pass over a region).
func CallGraphFromFns(fns map[string]*model.Fn) map[string]map[string]struct{} {
	g := make(map[string]map[string]struct{}, len(fns))
	for usr, fn := range fns {
		edges := make(map[string]struct{}, len(fn.CallSites))
		for _, cs := range fn.CallSites {
			edges[cs.CalleeUSR] = struct{}{}
		}
		g[usr] = edges
	}
	return g
}

// OverrideGraph adapts a polymorph table's direct (pre-closure) override
// edges into the same adjacency shape, for a one-off cycle sanity check
// before Close runs its own cycle-safe walk.
func OverrideGraph(direct map[string][]string) map[string]map[string]struct{} {
	g := make(map[string]map[string]struct{}, len(direct))
	for usr, overriders := range direct {
		edges := make(map[string]struct{}, len(overriders))
		for _, o := range overriders {
			edges[o] = struct{}{}
		}
		g[usr] = edges
	}
	return g
}
