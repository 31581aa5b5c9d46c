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

package fragment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
)

// ReadArray parses a single fragment file, which is always a JSON array of
// records. The extractor occasionally emits unescaped backslashes inside
// string literals; on the first parse failure we retry once with every
// backslash byte stripped before giving up on the file.
func ReadArray[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fragment: read %s: %v", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err == nil {
		return out, nil
	} else {
		stripped := bytes.ReplaceAll(data, []byte(`\`), nil)
		if err2 := json.Unmarshal(stripped, &out); err2 != nil {
			return nil, fmt.Errorf("fragment: malformed JSON in %s: %v", path, err)
		}
		glog.Warningf("fragment: %s needed backslash-stripping to parse", path)
		return out, nil
	}
}

// fileResult is one worker's outcome for a single fragment file.
type fileResult[T any] struct {
	path    string
	records []T
	err     error
}

// LoadDir discovers every *.json file under dir (recursively) and parses
// each as an array of T, fanning the per-file work out across a worker pool
// per the loader's documented concurrency model: one task per fragment file,
// merged serially on the caller's goroutine once all workers join. Malformed
// files are reported in the returned map keyed by path rather than aborting
// the whole load, so the caller can apply strict/non-strict policy itself.
func LoadDir[T any](dir string, numWorkers int) ([]T, map[string]error) {
	paths, err := doublestar.FilepathGlob(dir + "/**/*.json")
	if err != nil {
		glog.Errorf("fragment: glob %s: %v", dir, err)
		return nil, map[string]error{dir: err}
	}
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}
	if numWorkers == 0 {
		return nil, nil
	}

	jobs := make(chan string, len(paths))
	results := make(chan fileResult[T], len(paths))

	var workers sync.WaitGroup
	worker := func() {
		defer workers.Done()
		for path := range jobs {
			records, err := ReadArray[T](path)
			results <- fileResult[T]{path: path, records: records, err: err}
		}
	}
	for i := 0; i < numWorkers; i++ {
		workers.Add(1)
		go worker()
	}
	for _, path := range paths {
		jobs <- path
	}
	close(jobs)

	go func() {
		workers.Wait()
		close(results)
	}()

	var all []T
	errs := make(map[string]error)
	for res := range results {
		if res.err != nil {
			errs[res.path] = res.err
			continue
		}
		all = append(all, res.records...)
	}
	return all, errs
}

// LoadICGDir loads every ICG fragment file under dir.
func LoadICGDir(dir string, numWorkers int) ([]FunctionRecord, map[string]error) {
	return LoadDir[FunctionRecord](dir, numWorkers)
}

// LoadIPMDir loads every IPM fragment file under dir.
func LoadIPMDir(dir string, numWorkers int) ([]ClassRecord, map[string]error) {
	return LoadDir[ClassRecord](dir, numWorkers)
}
