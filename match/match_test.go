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

package match

import (
	"testing"

	"excflow.dev/excflow/model"
)

func set(exs ...model.Ex) model.ExSet {
	s := model.NewExSet()
	for _, ex := range exs {
		s.Add(ex)
	}
	return s
}

func TestFilter(t *testing.T) {
	ioErr := model.NewEx("IOError", "io.h:1", []string{"RuntimeError"})
	runtimeErr := model.NewEx("RuntimeError", "rt.h:1", nil)
	logicErr := model.NewEx("LogicError", "lg.h:1", nil)
	wildcard := model.NewEx(model.WildcardUSR, "", nil)

	cases := []struct {
		name     string
		thrown   model.ExSet
		catch    model.ExSet
		wantUSRs []string
	}{
		{
			name:     "wildcard catches everything",
			thrown:   set(ioErr, logicErr),
			catch:    set(wildcard),
			wantUSRs: nil,
		},
		{
			name:     "exact identity match is caught",
			thrown:   set(ioErr),
			catch:    set(ioErr),
			wantUSRs: nil,
		},
		{
			name:     "base-class handler catches a derived throw",
			thrown:   set(ioErr),
			catch:    set(runtimeErr),
			wantUSRs: nil,
		},
		{
			name:     "unrelated handler lets the exception escape",
			thrown:   set(ioErr, logicErr),
			catch:    set(logicErr),
			wantUSRs: []string{"IOError"},
		},
		{
			name:     "no handlers, nothing caught",
			thrown:   set(ioErr),
			catch:    set(),
			wantUSRs: []string{"IOError"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			escaping := Filter(c.thrown, c.catch)
			if len(escaping) != len(c.wantUSRs) {
				t.Fatalf("Filter() = %v, want USRs %v", escaping, c.wantUSRs)
			}
			for _, usr := range c.wantUSRs {
				if _, ok := escaping[usr]; !ok {
					t.Errorf("expected %s to escape, escaping = %v", usr, escaping)
				}
			}
		})
	}
}
