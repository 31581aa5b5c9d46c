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

// Package cache manages the per-translation-unit fragment cache: a mirror of
// source paths under <out>/cache/{ipm,icg,lmt} that lets the pipeline skip
// re-running the (external) extractor on a TU whose source hasn't changed
// since its fragments were produced.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/glog"
)

const (
	ipmDir = "ipm"
	icgDir = "icg"
	lmtDir = "lmt"
)

// Store roots the fragment cache at <outputDir>/cache.
type Store struct {
	root string
}

func New(outputDir string) *Store {
	return &Store{root: filepath.Join(outputDir, "cache")}
}

// mirrorPath maps a TU's source path onto one of the cache's three mirrors,
// preserving directory structure so collisions between same-named files in
// different directories don't clobber each other.
func (s *Store) mirrorPath(kind, sourcePath, suffix string) string {
	rel := sourcePath
	if filepath.IsAbs(rel) {
		rel = rel[1:]
	}
	return filepath.Join(s.root, kind, rel+suffix)
}

func (s *Store) IPMPath(sourcePath string) string { return s.mirrorPath(ipmDir, sourcePath, ".json") }
func (s *Store) ICGPath(sourcePath string) string { return s.mirrorPath(icgDir, sourcePath, ".json") }
func (s *Store) lmtPath(sourcePath string) string { return s.mirrorPath(lmtDir, sourcePath, "") }

// Fresh reports whether both fragment files for sourcePath exist and the
// recorded mtime still matches the file on disk, meaning extraction can be
// skipped for this TU.
func (s *Store) Fresh(sourcePath string) (bool, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return false, fmt.Errorf("cache: stat %s: %v", sourcePath, err)
	}
	if _, err := os.Stat(s.IPMPath(sourcePath)); err != nil {
		return false, nil
	}
	if _, err := os.Stat(s.ICGPath(sourcePath)); err != nil {
		return false, nil
	}
	recorded, err := os.ReadFile(s.lmtPath(sourcePath))
	if err != nil {
		return false, nil
	}
	return string(recorded) == strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
}

// Record stamps sourcePath's current mtime into the lmt mirror after its
// fragments have been (re-)written, so a later run can trust Fresh again.
func (s *Store) Record(sourcePath string) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("cache: stat %s: %v", sourcePath, err)
	}
	path := s.lmtPath(sourcePath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cache: mkdir for %s: %v", path, err)
	}
	return os.WriteFile(path, []byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)), 0644)
}

// Invalidate removes exactly one TU's fragments and mtime record, per the
// invariant that a changed source invalidates only its own cache entry.
func (s *Store) Invalidate(sourcePath string) error {
	glog.Infof("cache: invalidating %s", sourcePath)
	for _, path := range []string{s.IPMPath(sourcePath), s.ICGPath(sourcePath), s.lmtPath(sourcePath)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cache: remove %s: %v", path, err)
		}
	}
	return nil
}

// StaleSources filters sourcePaths down to those whose cache entries are
// missing or outdated, invalidating any partially-written entry along the
// way so a crashed prior run can't leave a mismatched ipm/icg pair behind.
func (s *Store) StaleSources(sourcePaths []string) ([]string, error) {
	stale := make([]string, 0, len(sourcePaths))
	for _, src := range sourcePaths {
		fresh, err := s.Fresh(src)
		if err != nil {
			return nil, err
		}
		if fresh {
			continue
		}
		if err := s.Invalidate(src); err != nil {
			return nil, err
		}
		stale = append(stale, src)
	}
	return stale, nil
}
