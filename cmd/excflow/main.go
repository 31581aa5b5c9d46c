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

package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/hhatto/gocloc"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"excflow.dev/excflow/basic"
	"excflow.dev/excflow/cache"
	"excflow.dev/excflow/compiledb"
	"excflow.dev/excflow/config"
	"excflow.dev/excflow/fragment"
	"excflow.dev/excflow/graph"
	"excflow.dev/excflow/polymorph"
	"excflow.dev/excflow/profile"
	"excflow.dev/excflow/propagate"
	"excflow.dev/excflow/sink"
	"excflow.dev/excflow/stats"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML pipeline configuration file")
	compileCommandsPath := flag.String("compile_commands_path", "", "Absolute path to the compile_commands.json file")
	fragmentDir := flag.String("fragment_dir", "", "Root of the ipm/icg fragment tree produced by the extractor")
	outputDir := flag.String("output_dir", "output", "Directory to write the cache mirror and artifact shards into")
	jobs := flag.Int("jobs", 0, "Number of fragment files to parse concurrently (0 = GOMAXPROCS)")
	flag.Parse()
	defer glog.Flush()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			glog.Fatalf("excflow: %v", err)
		}
		cfg = loaded
	}
	if *compileCommandsPath != "" {
		cfg.CompileCommands = *compileCommandsPath
	}
	if *fragmentDir != "" {
		cfg.FragmentDir = *fragmentDir
	}
	if *outputDir != "output" {
		cfg.OutputDir = *outputDir
	}
	if *jobs != 0 {
		cfg.Jobs = *jobs
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		glog.Fatalf("excflow: mkdir %s: %v", cfg.OutputDir, err)
	}

	printer := basic.NewCheckingProcessPrinter(int(stats.End))
	run(&cfg, &printer)
}

func run(cfg *config.Configuration, printer *basic.CheckingProcessPrinter) {
	started := time.Now()

	cancel := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		glog.Warning("excflow: interrupted, canceling the propagation fixed point")
		close(cancel)
	}()

	stageName := func(stage int) string {
		switch stage {
		case stats.Load:
			return "fragment loading"
		case stats.Polymorph:
			return "polymorph table construction"
		case stats.Assemble:
			return "graph assembly"
		case stats.Propagate:
			return "exception propagation"
		case stats.Profile:
			return "context profiling"
		case stats.Sink:
			return "artifact writing"
		default:
			return "unknown stage"
		}
	}
	begin := func(stage int) {
		stats.WriteProgress(cfg.OutputDir, stage, printer.GetPercentString(), printer.GetStartedAt())
		printer.StartAnalyzeTask(stageName(stage), messagePrinter())
	}
	end := func(stage int) {
		printer.FinishAnalyzeTask(stageName(stage), messagePrinter())
	}

	// §4.A: discover translation units and load fragments.
	begin(stats.Load)
	var sourceFiles []string
	if cfg.CompileCommands != "" {
		entries, err := compiledb.ReadFromFile(cfg.CompileCommands)
		if err != nil {
			glog.Fatalf("excflow: %v", err)
		}
		sourceFiles = compiledb.SourceFiles(entries)
	}
	cacheStore := cache.New(cfg.OutputDir)
	if len(sourceFiles) > 0 {
		if _, err := cacheStore.StaleSources(sourceFiles); err != nil {
			glog.Errorf("excflow: cache.StaleSources: %v", err)
		}
	}

	icgRecords, icgErrs := fragment.LoadICGDir(cfg.FragmentDir, cfg.Jobs)
	ipmRecords, ipmErrs := fragment.LoadIPMDir(cfg.FragmentDir, cfg.Jobs)
	reportFragmentErrors(cfg, icgErrs)
	reportFragmentErrors(cfg, ipmErrs)
	end(stats.Load)

	// §4.B: merge the polymorph table and compute its transitive closure.
	begin(stats.Polymorph)
	table := polymorph.New()
	table.Merge(ipmRecords)
	table.Close()
	end(stats.Polymorph)

	// §4.C: assemble the call graph and expand virtual calls.
	begin(stats.Assemble)
	g := graph.New()
	g.Merge(icgRecords)
	g.Link()
	if cfg.ExpandVirtualCalls {
		g.ExpandVirtualCalls(table)
	}
	g.Stats()
	if _, err := g.BackEdges(); err != nil {
		glog.Errorf("excflow: graph.BackEdges: %v", err)
	}
	if cycles := g.Recursion(); len(cycles) > 0 {
		glog.Infof("excflow: %d mutually-recursive function groups found", len(cycles))
	}
	end(stats.Assemble)

	// §4.D: run the exception-propagation fixed point.
	begin(stats.Propagate)
	propStats, ok := propagate.Run(g, cancel)
	if !ok {
		glog.Warning("excflow: propagation canceled before reaching a fixed point; artifacts reflect a partial run")
	} else {
		propagate.Reconcile(g)
	}
	end(stats.Propagate)

	// §4.F: profile thrown/caught ratios across every context level.
	begin(stats.Profile)
	prof := profile.Compute(g)
	end(stats.Profile)

	// §4.G: write the artifact shards and the overview.
	begin(stats.Sink)
	usrs := make([]string, 0, len(g.Fns))
	for usr := range g.Fns {
		usrs = append(usrs, usr)
	}
	if err := sink.WritePolymorph(cfg.OutputDir, table, usrs); err != nil {
		glog.Errorf("excflow: %v", err)
	}
	if err := sink.WriteCallGraph(cfg.OutputDir, g); err != nil {
		glog.Errorf("excflow: %v", err)
	}
	locTotal := countLines(cfg, sourceFiles)
	stats.WriteLOC(cfg.OutputDir, locTotal)
	if err := sink.WriteOverview(cfg.OutputDir, g, propStats, prof, locTotal); err != nil {
		glog.Errorf("excflow: %v", err)
	}
	end(stats.Sink)

	basic.PrintfWithTimeStamp("excflow finished in %s", basic.FormatTimeDuration(time.Since(started)))
}

var printerEnglish = message.NewPrinter(language.English)

func messagePrinter() *message.Printer { return printerEnglish }

func reportFragmentErrors(cfg *config.Configuration, errs map[string]error) {
	for path, err := range errs {
		if cfg.Strict {
			glog.Fatalf("excflow: %s: %v", path, err)
		}
		glog.Errorf("excflow: skipping %s: %v", path, err)
	}
}

// countLines runs gocloc over every directory that contains a translation
// unit's source file to produce the overview's lines-of-code figure. Every
// file gocloc recognizes under those directories is counted, not only the
// translation units themselves. If gocloc reports an error, the count is 0.
func countLines(cfg *config.Configuration, sourceFiles []string) int {
	if len(sourceFiles) == 0 {
		return 0
	}
	languages := gocloc.NewDefinedLanguages()
	options := gocloc.NewClocOptions()
	processor := gocloc.NewProcessor(languages, options)

	dirs := make(map[string]struct{})
	for _, f := range sourceFiles {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	paths := make([]string, 0, len(dirs))
	for d := range dirs {
		paths = append(paths, d)
	}

	result, err := processor.Analyze(paths)
	if err != nil {
		glog.Errorf("excflow: gocloc.Analyze: %v", err)
		return 0
	}
	sum := 0
	for _, file := range result.Files {
		sum += int(file.Code)
	}
	return sum
}
