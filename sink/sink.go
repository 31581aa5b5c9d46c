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

// Package sink writes the pipeline's final artifacts: partitioned JSON
// shards of the merged polymorph table and call graph, plus a
// human-readable overview of the run.
package sink

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"excflow.dev/excflow/atomic"
	"excflow.dev/excflow/basic"
	"excflow.dev/excflow/graph"
	"excflow.dev/excflow/model"
	"excflow.dev/excflow/polymorph"
	"excflow.dev/excflow/profile"
	"excflow.dev/excflow/propagate"

	"github.com/golang/glog"
)

// ShardSize caps how many top-level entries go into a single shard file, so
// no individual artifact file grows large enough to be awkward to diff or
// to stream.
const ShardSize = 1000

// polyShardEntry and cgShardEntry are the sink's own output shapes: they
// echo the merged, whole-program view, not the raw per-TU fragment wire
// format that package fragment deals with.
type polyShardEntry struct {
	USR     string              `json:"USR"`
	SName   string              `json:"SName"`
	Derived []model.DerivedMethod `json:"Derived"`
}

type exOut struct {
	USR string `json:"USR"`
	Loc string `json:"Loc"`
}

type callSiteOut struct {
	CalleeUSR string  `json:"CalleeUSR"`
	Loc       string  `json:"Loc"`
	Synthetic bool    `json:"Synthetic,omitempty"`
	Escaping  []exOut `json:"Escaping"`
}

type cgShardEntry struct {
	USR         string        `json:"USR"`
	SName       string        `json:"SName"`
	Loc         string        `json:"Loc"`
	DirectThrow []exOut       `json:"DirectThrow"`
	Throw       []exOut       `json:"Throw"`
	CallSite    []callSiteOut `json:"CallSite"`
}

func toExOut(set model.ExSet) []exOut {
	out := make([]exOut, 0, len(set))
	for _, ex := range set {
		out = append(out, exOut{USR: ex.USR, Loc: ex.Loc})
	}
	slices.SortFunc(out, func(a, b exOut) bool { return a.USR < b.USR })
	return out
}

// writeShards partitions entries into ceil(len/ShardSize) files (at least
// one, so an empty input still yields a single "[]" shard) named
// fmt.Sprintf(pattern, k) for k = 1, 2, ..., writing each atomically so a
// crash mid-run never leaves a half-written shard visible to a later read.
func writeShards(outDir, pattern string, entries []json.RawMessage) error {
	if entries == nil {
		entries = []json.RawMessage{}
	}
	numShards := (len(entries) + ShardSize - 1) / ShardSize
	if numShards == 0 {
		numShards = 1
	}
	for k := 1; k <= numShards; k++ {
		start := (k - 1) * ShardSize
		end := start + ShardSize
		if end > len(entries) {
			end = len(entries)
		}
		shard := entries[start:end]
		data, err := json.MarshalIndent(shard, "", "  ")
		if err != nil {
			return fmt.Errorf("sink: marshal shard %d of %s: %v", k, pattern, err)
		}
		path := filepath.Join(outDir, fmt.Sprintf(pattern, k))
		if err := atomic.Write(path, data); err != nil {
			return fmt.Errorf("sink: write %s: %v", path, err)
		}
	}
	return nil
}

func marshalAll[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// WritePolymorph emits the polymorph table as pm-<k>.json shards.
func WritePolymorph(outDir string, table *polymorph.Table, usrs []string) error {
	entries := make([]polyShardEntry, 0, len(usrs))
	for _, usr := range usrs {
		derived := table.Overriders(usr)
		if len(derived) == 0 {
			continue
		}
		entries = append(entries, polyShardEntry{USR: usr, Derived: derived})
	}
	raw, err := marshalAll(entries)
	if err != nil {
		return fmt.Errorf("sink: marshal polymorph entries: %v", err)
	}
	return writeShards(outDir, "pm-%d.json", raw)
}

// WriteCallGraph emits the assembled, propagated call graph as cg-<k>.json
// shards, one entry per function in deterministic USR order.
func WriteCallGraph(outDir string, g *graph.Graph) error {
	usrs := make([]string, 0, len(g.Fns))
	for usr := range g.Fns {
		usrs = append(usrs, usr)
	}
	slices.Sort(usrs)

	entries := make([]cgShardEntry, 0, len(usrs))
	for _, usr := range usrs {
		fn := g.Fns[usr]
		callSites := make([]callSiteOut, 0, len(fn.CallSites))
		for _, cs := range fn.CallSites {
			callSites = append(callSites, callSiteOut{
				CalleeUSR: cs.CalleeUSR,
				Loc:       cs.Loc,
				Synthetic: cs.IsSynthetic(),
				Escaping:  toExOut(propagate.Escaping(cs)),
			})
		}
		entries = append(entries, cgShardEntry{
			USR:         fn.USR,
			SName:       fn.SName,
			Loc:         fn.Loc,
			DirectThrow: toExOut(fn.DirectThrow),
			Throw:       toExOut(fn.Throw),
			CallSite:    callSites,
		})
	}
	raw, err := marshalAll(entries)
	if err != nil {
		return fmt.Errorf("sink: marshal call graph entries: %v", err)
	}
	return writeShards(outDir, "cg-%d.json", raw)
}

// Overview is the human-readable summary written alongside the shards.
type Overview struct {
	RunID          string         `json:"run_id"`
	Functions      int            `json:"functions"`
	CallSites      int            `json:"call_sites"`
	SyntheticSites int            `json:"synthetic_call_sites"`
	Iterations     int            `json:"propagation_iterations"`
	LinesOfCode    int            `json:"lines_of_code"`
	ContextRates   map[int]string `json:"context_rates"`
}

// WriteOverview writes overview.json and logs its headline numbers, using
// the same progress-printing helpers the rest of the pipeline reports
// stage completion with.
func WriteOverview(outDir string, g *graph.Graph, stats propagate.Stats, prof profile.Profile, linesOfCode int) error {
	var calls, synthetic int
	for _, fn := range g.Fns {
		calls += len(fn.CallSites)
		for _, cs := range fn.CallSites {
			if cs.IsSynthetic() {
				synthetic++
			}
		}
	}

	rates := make(map[int]string, profile.NumLevels)
	for level := 1; level <= profile.NumLevels; level++ {
		rates[level] = prof[level].Rate()
	}

	ov := Overview{
		RunID:          uuid.New().String(),
		Functions:      len(g.Fns),
		CallSites:      calls,
		SyntheticSites: synthetic,
		Iterations:     stats.Iterations,
		LinesOfCode:    linesOfCode,
		ContextRates:   rates,
	}
	data, err := json.MarshalIndent(ov, "", "  ")
	if err != nil {
		return fmt.Errorf("sink: marshal overview: %v", err)
	}
	path := filepath.Join(outDir, "overview.json")
	if err := atomic.Write(path, data); err != nil {
		return fmt.Errorf("sink: write %s: %v", path, err)
	}

	basic.PrintfWithTimeStamp("wrote overview: %d functions, %d call sites (%d synthetic), %d propagation iterations",
		ov.Functions, ov.CallSites, ov.SyntheticSites, ov.Iterations)
	glog.Infof("sink: overview written to %s", path)
	return nil
}
