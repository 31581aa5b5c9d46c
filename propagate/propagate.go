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

// Package propagate runs the exception propagator: a worklist fixed-point
// that grows each function's throw set across call edges until no function
// can contribute anything new to any of its callers.
package propagate

import (
	"excflow.dev/excflow/graph"
	"excflow.dev/excflow/match"
	"excflow.dev/excflow/model"

	"github.com/golang/glog"
)

// Stats reports how much work the fixed-point actually did, for the
// pipeline's overview output.
type Stats struct {
	Iterations    int // number of worklist pops
	Contributions int // number of caller throw-sets actually grown
}

// Run drives the fixed-point to completion. The worklist is seeded with
// every function that has at least one direct throw; popping a function
// pushes its current throw set, filtered per call site by that call site's
// catch set, onto every caller that calls it, re-enqueuing any caller whose
// throw set actually grew as a result.
//
// The worklist is kept as a LIFO stack: a function just updated is examined
// again before older, possibly-already-stable entries, which keeps hot
// regions of the graph converging together instead of round-robining the
// whole program.
//
// A visited snapshot per function skips redundant work: if a function's
// throw set hasn't changed since it was last popped, popping it again
// contributes nothing, so it's skipped outright. This, together with the
// throw sets growing monotonically inside the bounded universe of Ex values
// extracted from the program, is what guarantees termination.
//
// cancel, if non-nil, is polled once per dequeue; a closed or ready channel
// aborts the run early and returns the partial result along with the
// accumulated Stats, mirroring the cooperative-cancellation style used
// elsewhere in the pipeline in place of context.Context.
func Run(g *graph.Graph, cancel <-chan struct{}) (Stats, bool) {
	stats := Stats{}
	stack := make([]string, 0)
	onStack := make(map[string]bool)
	push := func(usr string) {
		if onStack[usr] {
			return
		}
		onStack[usr] = true
		stack = append(stack, usr)
	}
	for usr, fn := range g.Fns {
		if len(fn.DirectThrow) > 0 {
			push(usr)
		}
	}

	visited := make(map[string]model.ExSet, len(g.Fns))

	for len(stack) > 0 {
		if cancel != nil {
			select {
			case <-cancel:
				glog.Warningf("propagate: canceled after %d iterations", stats.Iterations)
				return stats, false
			default:
			}
		}
		stats.Iterations++

		usr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		onStack[usr] = false

		callee := g.Fns[usr]
		if callee == nil {
			continue
		}
		if snapshot, ok := visited[usr]; ok && snapshot.Equal(callee.Throw) {
			continue
		}
		visited[usr] = callee.Throw.Clone()

		for callerUSR := range callee.Callers {
			caller := g.Fns[callerUSR]
			if caller == nil {
				continue
			}
			newEx := model.NewExSet()
			for _, cs := range caller.CallSites {
				if cs.CalleeUSR != usr {
					continue
				}
				newEx.AddAll(match.Filter(callee.Throw, cs.CatchSet))
			}
			if len(newEx) == 0 || caller.Throw.Supersets(newEx) {
				continue
			}
			caller.Throw.AddAll(newEx)
			stats.Contributions++
			push(callerUSR)
		}
	}
	return stats, true
}

// Reconcile runs the expansion-reconciliation post-pass: for every synthetic
// call site with expand_origin_usr e and callee_usr d, fold Fn[d].throw into
// Fn[e].throw. Virtual expansion only ever delivers an overrider's throws to
// its own callers via the synthetic call sites Run already walked; this
// makes sure the *declared* virtual base that callers actually wrote also
// reflects whatever its overriders may throw, since Run only moves throws
// from a callee to its callers and a base method is not a caller of its
// overriders.
func Reconcile(g *graph.Graph) {
	for _, fn := range g.Fns {
		for _, cs := range fn.CallSites {
			if !cs.IsSynthetic() {
				continue
			}
			origin, ok := g.Fns[cs.ExpandOriginUSR]
			if !ok || cs.Callee == nil {
				continue
			}
			origin.Throw.AddAll(cs.Callee.Throw)
		}
	}
}

// Escaping returns the exceptions that actually cross a given call site
// uncaught: the callee's current throw set, filtered by the call site's own
// catch set. It is recomputed on demand rather than cached on the CS, since
// its caller (the sink) needs it only after the fixed point has fully
// converged.
func Escaping(cs *model.CS) model.ExSet {
	if cs.Callee == nil {
		return model.NewExSet()
	}
	return match.Filter(cs.Callee.Throw, cs.CatchSet)
}
