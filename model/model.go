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

// Package model defines the consolidated, whole-program data model that the
// rest of the pipeline builds and mutates: exception types, call sites,
// functions and the polymorph table. Fragment-local JSON records live in
// package fragment; this package only holds the merged, USR-addressed view.
package model

// WildcardUSR is the synthetic USR denoting a catch-all (catch (...)) handler.
const WildcardUSR = "..."

// SystemTag is the flag letter marking a function as defined in a system
// header; the profiler ignores such functions as caller contexts.
const SystemTag = 'S'

// Ex is an exception type, identified by its USR. Two Ex values with the
// same USR are the same exception type even if extracted from different
// translation units; the first-seen Loc wins so dumps stay deterministic.
type Ex struct {
	USR     string
	Loc     string
	Parents map[string]struct{}
}

// NewEx builds an Ex from its USR, declaration location and parent USRs.
func NewEx(usr, loc string, parents []string) Ex {
	p := make(map[string]struct{}, len(parents))
	for _, parent := range parents {
		p[parent] = struct{}{}
	}
	return Ex{USR: usr, Loc: loc, Parents: p}
}

// IsWildcard reports whether this Ex is the catch-all marker.
func (e Ex) IsWildcard() bool { return e.USR == WildcardUSR }

// HasParent reports whether usr is one of e's declared base classes.
func (e Ex) HasParent(usr string) bool {
	_, ok := e.Parents[usr]
	return ok
}

// ExSet is a set of exception types keyed by USR. The zero value is not
// usable; use NewExSet.
type ExSet map[string]Ex

func NewExSet() ExSet { return make(ExSet) }

// Add inserts ex, keeping the first-seen Loc for a given USR.
func (s ExSet) Add(ex Ex) {
	if _, ok := s[ex.USR]; ok {
		return
	}
	s[ex.USR] = ex
}

// AddAll inserts every element of other into s.
func (s ExSet) AddAll(other ExSet) {
	for _, ex := range other {
		s.Add(ex)
	}
}

// Clone returns a shallow, independently-mutable copy of s.
func (s ExSet) Clone() ExSet {
	c := make(ExSet, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Equal reports whether s and other contain exactly the same USRs.
func (s ExSet) Equal(other ExSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Supersets reports whether s contains every element of other.
func (s ExSet) Supersets(other ExSet) bool {
	for k := range other {
		if _, ok := s[k]; !ok {
			return false
		}
	}
	return true
}

// CS is a call site: a single call expression lexically located inside its
// owning function, along with the catch clauses visible to it.
type CS struct {
	CalleeUSR       string
	CalleeSName     string
	Loc             string
	ExpandOriginUSR string // non-empty iff this CS was synthesized by virtual expansion
	CatchSet        ExSet

	Owner  *Fn // the function this call site lexically belongs to
	Callee *Fn // resolved at assembly time; nil for unresolved externals
}

// IsSynthetic reports whether this call site was produced by virtual-call
// expansion rather than extracted directly from source.
func (c *CS) IsSynthetic() bool { return c.ExpandOriginUSR != "" }

// key identifies a call site within its owning function, per the data
// model's equality rule: (callee_usr, loc).
type csKey struct {
	calleeUSR string
	loc       string
}

func (c *CS) key() csKey { return csKey{calleeUSR: c.CalleeUSR, loc: c.Loc} }

// Fn is a whole-program function (or method) node in the call graph.
type Fn struct {
	USR  string
	SName string
	Loc  string
	Tag  string

	DirectThrow ExSet
	Throw       ExSet

	CallSites []*CS
	callSiteIndex map[csKey]*CS

	Callers map[string]struct{} // USRs of functions with a call site targeting this Fn
}

// NewFn builds an empty Fn ready to accept call sites and callers.
func NewFn(usr, sname, loc, tag string) *Fn {
	return &Fn{
		USR:           usr,
		SName:         sname,
		Loc:           loc,
		Tag:           tag,
		DirectThrow:   NewExSet(),
		Throw:         NewExSet(),
		callSiteIndex: make(map[csKey]*CS),
		Callers:       make(map[string]struct{}),
	}
}

// IsSystemHeader reports whether this function is tagged as living in a
// system header, which the profiler treats as never a caller context.
func (f *Fn) IsSystemHeader() bool {
	for _, r := range f.Tag {
		if r == SystemTag {
			return true
		}
	}
	return false
}

// AddCallSite inserts cs into f.CallSites, deduplicating by (callee_usr, loc)
// as required by the data model's call-site equality rule. Returns the call
// site actually stored (either cs, or the pre-existing equal one).
func (f *Fn) AddCallSite(cs *CS) *CS {
	k := cs.key()
	if existing, ok := f.callSiteIndex[k]; ok {
		return existing
	}
	cs.Owner = f
	f.callSiteIndex[k] = cs
	f.CallSites = append(f.CallSites, cs)
	return cs
}

// MergeFrom absorbs the call sites and direct-throws of a duplicate fragment
// for the same USR, per the union-of-fragments resolution recommended for
// overlapping translation-unit includes.
func (f *Fn) MergeFrom(other *Fn) {
	f.DirectThrow.AddAll(other.DirectThrow)
	f.Throw.AddAll(other.DirectThrow)
	for _, cs := range other.CallSites {
		f.AddCallSite(&CS{
			CalleeUSR:       cs.CalleeUSR,
			CalleeSName:     cs.CalleeSName,
			Loc:             cs.Loc,
			ExpandOriginUSR: cs.ExpandOriginUSR,
			CatchSet:        cs.CatchSet.Clone(),
		})
	}
}

// DerivedMethod is one known override of a polymorph table entry.
type DerivedMethod struct {
	Name  string // USR of the overriding method
	SName string
}

// Poly is the polymorph-table entry for one overridden base method: the set
// of methods (by USR) known to override it, kept as an ordered, deduplicated
// list for deterministic dumping.
type Poly struct {
	Name       string
	SName      string
	Derived    []DerivedMethod
	derivedIdx map[string]int
}

func NewPoly(name, sname string) *Poly {
	return &Poly{Name: name, SName: sname, derivedIdx: make(map[string]int)}
}

// AddDerived appends a new override if not already present, by USR.
func (p *Poly) AddDerived(d DerivedMethod) {
	if p.derivedIdx == nil {
		p.derivedIdx = make(map[string]int)
	}
	if _, ok := p.derivedIdx[d.Name]; ok {
		return
	}
	p.derivedIdx[d.Name] = len(p.Derived)
	p.Derived = append(p.Derived, d)
}

// ResetDerived clears both the ordered override list and its dedup index, so
// a caller that needs to rebuild Derived from scratch (the transitive
// closure step, which recomputes the full overrider set) doesn't leave the
// old index around rejecting every name it already saw during the merge
// phase.
func (p *Poly) ResetDerived() {
	p.Derived = p.Derived[:0]
	p.derivedIdx = make(map[string]int)
}
