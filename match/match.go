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

// Package match implements the handler-match oracle: deciding which
// exceptions thrown across a call site are actually caught there, so the
// propagator only keeps carrying the uncaught remainder to the caller.
package match

import "excflow.dev/excflow/model"

// Filter returns the subset of thrown that escapes catchSet uncaught: an
// exception is removed from the result the moment any one handler in
// catchSet matches it, by any of three rules — a catch-all wildcard, an
// identical USR, or a USR appearing in the thrown type's own parent chain
// (a handler for a base class catches a derived-type throw).
func Filter(thrown, catchSet model.ExSet) model.ExSet {
	escaping := model.NewExSet()
	for _, ex := range thrown {
		if !caught(ex, catchSet) {
			escaping.Add(ex)
		}
	}
	return escaping
}

// caught reports whether a single exception type is caught by any handler in
// catchSet.
func caught(ex model.Ex, catchSet model.ExSet) bool {
	for _, handler := range catchSet {
		if handler.IsWildcard() {
			return true
		}
		if handler.USR == ex.USR {
			return true
		}
		if ex.HasParent(handler.USR) {
			return true
		}
	}
	return false
}
