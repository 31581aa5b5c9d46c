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

package propagate

import (
	"testing"

	"excflow.dev/excflow/fragment"
	"excflow.dev/excflow/graph"
	"excflow.dev/excflow/polymorph"
)

// TestRunPropagatesThroughUncaughtChain covers S1: a throws E, b calls a
// with no handler, c calls b with no handler. E must reach both b and c.
func TestRunPropagatesThroughUncaughtChain(t *testing.T) {
	g := graph.New()
	g.Merge([]fragment.FunctionRecord{
		{USR: "a", SName: "a", Loc: "x.cc:1", DirectThrow: []fragment.ExRecord{{USR: "E"}}},
		{USR: "b", SName: "b", Loc: "x.cc:5", CallSite: []fragment.CallSiteRecord{{USR: "a", SName: "a", Loc: "x.cc:6"}}},
		{USR: "c", SName: "c", Loc: "x.cc:9", CallSite: []fragment.CallSiteRecord{{USR: "b", SName: "b", Loc: "x.cc:10"}}},
	})
	g.Link()

	stats, ok := Run(g, nil)
	if !ok {
		t.Fatal("Run canceled unexpectedly")
	}
	if stats.Iterations == 0 {
		t.Error("expected at least one worklist iteration")
	}
	if _, caught := g.Fns["b"].Throw["E"]; !caught {
		t.Error("expected E to propagate to b")
	}
	if _, caught := g.Fns["c"].Throw["E"]; !caught {
		t.Error("expected E to propagate to c")
	}
}

// TestRunStopsAtAMatchingCatch covers S2: a throws E, b calls a inside a
// catch(E) handler. E must not propagate to b.
func TestRunStopsAtAMatchingCatch(t *testing.T) {
	g := graph.New()
	g.Merge([]fragment.FunctionRecord{
		{USR: "a", SName: "a", Loc: "x.cc:1", DirectThrow: []fragment.ExRecord{{USR: "E"}}},
		{USR: "b", SName: "b", Loc: "x.cc:5", CallSite: []fragment.CallSiteRecord{
			{USR: "a", SName: "a", Loc: "x.cc:6", Catch: []fragment.ExRecord{{USR: "E"}}},
		}},
	})
	g.Link()

	if _, ok := Run(g, nil); !ok {
		t.Fatal("Run canceled unexpectedly")
	}
	if len(g.Fns["b"].Throw) != 0 {
		t.Errorf("Throw(b) = %v, want empty (caught at the call site)", g.Fns["b"].Throw)
	}
}

// TestRunBaseClassCatchCatchesDerivedThrow covers S3: a throws a Derived
// exception whose parent chain includes Base; b's handler names Base. The
// throw must still be caught.
func TestRunBaseClassCatchCatchesDerivedThrow(t *testing.T) {
	g := graph.New()
	g.Merge([]fragment.FunctionRecord{
		{USR: "a", SName: "a", Loc: "x.cc:1", DirectThrow: []fragment.ExRecord{{USR: "Derived", Parent: []string{"Base"}}}},
		{USR: "b", SName: "b", Loc: "x.cc:5", CallSite: []fragment.CallSiteRecord{
			{USR: "a", SName: "a", Loc: "x.cc:6", Catch: []fragment.ExRecord{{USR: "Base"}}},
		}},
	})
	g.Link()

	if _, ok := Run(g, nil); !ok {
		t.Fatal("Run canceled unexpectedly")
	}
	if len(g.Fns["b"].Throw) != 0 {
		t.Errorf("Throw(b) = %v, want empty (Base handler catches Derived)", g.Fns["b"].Throw)
	}
}

// TestRunHonorsCancellation exercises the cooperative-cancellation path: a
// channel closed before Run starts must abort with ok=false and without
// panicking.
func TestRunHonorsCancellation(t *testing.T) {
	g := graph.New()
	g.Merge([]fragment.FunctionRecord{
		{USR: "a", SName: "a", Loc: "x.cc:1", DirectThrow: []fragment.ExRecord{{USR: "E"}}},
	})
	g.Link()

	cancel := make(chan struct{})
	close(cancel)
	_, ok := Run(g, cancel)
	if ok {
		t.Error("expected Run to report ok=false when canceled")
	}
}

// TestReconcileFoldsOverriderThrowsIntoBase covers the expansion
// reconciliation post-pass: a virtual base's own throw set must absorb
// whatever its overrider throws, once propagation has converged.
func TestReconcileFoldsOverriderThrowsIntoBase(t *testing.T) {
	g := graph.New()
	g.Merge([]fragment.FunctionRecord{
		{USR: "Caller::run", SName: "Caller::run", Loc: "a.cc:1",
			CallSite: []fragment.CallSiteRecord{{USR: "Base::f", SName: "Base::f", Loc: "a.cc:2"}}},
		{USR: "Base::f", SName: "Base::f", Loc: "base.h:1"},
		{USR: "Derived::f", SName: "Derived::f", Loc: "derived.h:1",
			DirectThrow: []fragment.ExRecord{{USR: "E1"}}},
	})
	g.Link()

	table := polymorph.New()
	table.Merge([]fragment.ClassRecord{
		{Method: []fragment.MethodRecord{
			{Name: "Derived::f", SName: "Derived::f", Override: []fragment.OverrideRecord{{Name: "Base::f", SName: "Base::f"}}},
		}},
	})
	table.Close()
	g.ExpandVirtualCalls(table)

	if _, ok := Run(g, nil); !ok {
		t.Fatal("Run canceled unexpectedly")
	}
	Reconcile(g)

	if _, ok := g.Fns["Base::f"].Throw["E1"]; !ok {
		t.Error("expected Base::f.Throw to absorb Derived::f's E1 after reconciliation")
	}
}
