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

// Package stats publishes the pipeline's own progress, as a small JSON file
// a long-running invocation's caller can poll instead of parsing log output.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/glog"

	"excflow.dev/excflow/atomic"
)

// Stage identifies one of the pipeline's components, in the order they run.
const (
	Load      int = iota // fragment loading (§4.A)
	Polymorph            // polymorph table construction (§4.B)
	Assemble             // graph assembly and virtual-call expansion (§4.C)
	Propagate            // exception propagation fixed point (§4.D)
	Profile              // context profiling (§4.F)
	Sink                 // artifact writing (§4.G)
	End
)

type Progress struct {
	StageID   int       `json:"stage_id"`
	DoneRatio string    `json:"done_ratio"`
	StartedAt time.Time `json:"started_at"`
}

// WriteProgress stamps the pipeline's current stage into resultDir's
// progress file, skipping with only a logged warning if resultDir doesn't
// exist (a caller
// that never asked for progress tracking won't have created it).
func WriteProgress(resultDir string, stageID int, doneRatio string, startedAt time.Time) {
	if _, err := os.Stat(resultDir); os.IsNotExist(err) {
		glog.Warningf("result dir %s does not exist", resultDir)
		return
	}
	path := filepath.Join(resultDir, "progress.nsa_metadata")
	progress, err := json.Marshal(Progress{StageID: stageID, DoneRatio: doneRatio, StartedAt: startedAt})
	if err != nil {
		glog.Errorf("failed to marshal json stageID %d and doneRatio %s: %v", stageID, doneRatio, err)
		return
	}
	if err := atomic.Write(path, progress); err != nil {
		glog.Errorf("failed to write to file %s: %v", path, err)
	}
}

// WriteLOC records the line count gocloc measured across the analyzed
// sources, alongside the progress file, for the overview to report.
func WriteLOC(resultDir string, lines int) {
	path := filepath.Join(resultDir, "loc.nsa_metadata")
	if err := atomic.Write(path, []byte(strconv.Itoa(lines))); err != nil {
		glog.Errorf("failed to write to file %s: %v", path, err)
	}
}
