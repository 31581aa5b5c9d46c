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

// Package graph assembles the whole-program call graph out of per-TU ICG
// fragments, expands virtual call sites against the polymorph table, and
// derives the caller back-edges the propagator walks.
package graph

import (
	"fmt"

	"excflow.dev/excflow/fragment"
	"excflow.dev/excflow/model"
	"excflow.dev/excflow/polymorph"
	"excflow.dev/excflow/utils"

	"github.com/golang/glog"
)

// Graph is the merged, whole-program call graph: every Fn with a
// FunctionRecord in some merged fragment, indexed by USR. A call site whose
// callee never got one of its own — an externally-declared symbol, a
// standard-library call, anything this project's own TUs never defined —
// has no corresponding entry here; its CS.Callee stays nil.
type Graph struct {
	Fns map[string]*model.Fn
}

func New() *Graph {
	return &Graph{Fns: make(map[string]*model.Fn)}
}

func toExSet(records []fragment.ExRecord) model.ExSet {
	set := model.NewExSet()
	for _, r := range records {
		set.Add(model.NewEx(r.USR, r.Loc, r.Parent))
	}
	return set
}

// Merge absorbs one ICG fragment's function records. A function appearing in
// more than one fragment (because its translation unit's headers were
// reprocessed from multiple TUs) is merged in place rather than overwritten:
// its direct throws and call sites are unioned into the existing Fn, the same
// rule Fn.MergeFrom applies to two already-built Fn values.
func (g *Graph) Merge(records []fragment.FunctionRecord) {
	for _, rec := range records {
		fn, ok := g.Fns[rec.USR]
		if !ok {
			fn = model.NewFn(rec.USR, rec.SName, rec.Loc, rec.Tag)
			g.Fns[rec.USR] = fn
		} else if fn.Loc == "" {
			// An earlier fragment recorded this USR without a location
			// (e.g. a forward declaration); fill it in now that a fragment
			// carrying the definition has been merged.
			fn.Loc = rec.Loc
			fn.Tag = rec.Tag
		}
		fn.DirectThrow.AddAll(toExSet(rec.DirectThrow))
		// throw ⊇ direct_throw must hold immediately after load, not only
		// once the propagator has run, so a direct throw is folded into
		// Throw here too rather than trusting the fragment's own Throw
		// field (which a pre-whole-program extractor sets equal to
		// DirectThrow, but a stale or hand-edited fragment might not).
		fn.Throw.AddAll(toExSet(rec.DirectThrow))
		fn.Throw.AddAll(toExSet(rec.Throw))
		for _, cs := range rec.CallSite {
			fn.AddCallSite(&model.CS{
				CalleeUSR:   cs.USR,
				CalleeSName: cs.SName,
				Loc:         cs.Loc,
				CatchSet:    toExSet(cs.Catch),
			})
		}
	}
}

// Link resolves every call site's Callee pointer and populates each callee's
// Callers set. A callee USR that was referenced but never defined in any
// merged fragment is left unresolved — cs.Callee stays nil and no back-edge
// is recorded for it, per the documented silent-drop handling of unresolved
// callees rather than fabricating a stand-in Fn.
func (g *Graph) Link() {
	for _, fn := range g.Fns {
		for _, cs := range fn.CallSites {
			callee, ok := g.Fns[cs.CalleeUSR]
			if !ok {
				continue
			}
			cs.Callee = callee
			callee.Callers[fn.USR] = struct{}{}
		}
	}
}

// ExpandVirtualCalls walks every call site whose callee is a polymorph-table
// entry (i.e. an overridden virtual method) and synthesizes one additional
// call site per known override, carrying the original call site's catch set
// forward unchanged. Synthetic call sites are tagged with ExpandOriginUSR so
// later stages (and the sink's dumps) can tell them apart from call sites
// extracted directly from source.
func (g *Graph) ExpandVirtualCalls(table *polymorph.Table) {
	for _, fn := range g.Fns {
		// Snapshot before mutating CallSites, since AddCallSite may append
		// to the very slice we're iterating.
		original := make([]*model.CS, len(fn.CallSites))
		copy(original, fn.CallSites)
		for _, cs := range original {
			overriders := table.Overriders(cs.CalleeUSR)
			for _, d := range overriders {
				if d.Name == cs.CalleeUSR {
					continue
				}
				synthetic := &model.CS{
					CalleeUSR:       d.Name,
					CalleeSName:     d.SName,
					Loc:             cs.Loc,
					ExpandOriginUSR: cs.CalleeUSR,
					CatchSet:        cs.CatchSet.Clone(),
				}
				stored := fn.AddCallSite(synthetic)
				if callee, ok := g.Fns[d.Name]; ok {
					stored.Callee = callee
					callee.Callers[fn.USR] = struct{}{}
				}
			}
		}
	}
}

// BackEdges returns, for every Fn, the USRs of its direct callers. This is
// simply Fn.Callers surfaced as a plain map for callers that don't want to
// reach into the model package directly, and is also where a dangling
// back-edge (a caller USR with no corresponding Fn, which should never
// happen after Link) would be caught.
func (g *Graph) BackEdges() (map[string][]string, error) {
	edges := make(map[string][]string, len(g.Fns))
	for usr, fn := range g.Fns {
		callers := make([]string, 0, len(fn.Callers))
		for caller := range fn.Callers {
			if _, ok := g.Fns[caller]; !ok {
				return nil, fmt.Errorf("graph: back-edge from unknown caller %s to %s", caller, usr)
			}
			callers = append(callers, caller)
		}
		edges[usr] = callers
	}
	return edges, nil
}

// Stats logs a one-line summary of the assembled graph, in the spirit of the
// pipeline's other stage-completion log lines.
func (g *Graph) Stats() {
	var calls, synthetic int
	for _, fn := range g.Fns {
		calls += len(fn.CallSites)
		for _, cs := range fn.CallSites {
			if cs.IsSynthetic() {
				synthetic++
			}
		}
	}
	glog.Infof("graph: %d functions, %d call sites (%d synthesized by virtual expansion)", len(g.Fns), calls, synthetic)
}

// Recursion reports every strongly-connected component of size greater than
// one in the call graph, i.e. every set of functions that call each other in
// a cycle (direct recursion is a single-node SCC and isn't reported). This is
// informational, not an error: mutual recursion is ordinary C++, but knowing
// where it is explains why the propagator needed more than one pass over a
// region before reaching a fixed point.
func (g *Graph) Recursion() [][]string {
	adjacency := utils.CallGraphFromFns(g.Fns)
	return utils.RecursiveTarjanSCC(&adjacency)
}
