// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// AnalysisReport holds the parsed results of the static analysis stage.
type AnalysisReport struct {
	// ComplexityBlocks is the number of functions, methods and classes
	// radon measured.
	ComplexityBlocks int `yaml:"complexity_blocks"`

	// AverageComplexity is the mean cyclomatic complexity.
	AverageComplexity float64 `yaml:"average_complexity"`

	// ComplexityRank is radon's letter grade for the average (A to F).
	ComplexityRank string `yaml:"complexity_rank,omitempty"`

	// Maintainability maps rank (A, B, C) to the number of files with it.
	Maintainability map[string]int `yaml:"maintainability,omitempty"`

	// Failures lists passes that did not complete. Non-empty only when
	// the stage is advisory.
	Failures []string `yaml:"failures,omitempty"`
}

var (
	reAverage = regexp.MustCompile(`Average complexity:\s+([A-F])\s+\(([0-9.]+)\)`)
	reBlocks  = regexp.MustCompile(`^(\d+) blocks? \(classes, functions, methods\) analyzed`)
	reMIFile  = regexp.MustCompile(`^(\S.*?) - ([A-C]) \(([0-9.]+)\)$`)
)

// Analyze runs the cyclomatic complexity and maintainability index
// passes over the project, excluding the environment directory. The
// stage is advisory unless Analysis.Gating is set: a failing pass is
// logged and recorded and the pipeline goes on.
func (o *Orchestrator) Analyze(ctx context.Context, env Environment) (AnalysisReport, error) {
	report := AnalysisReport{Maintainability: map[string]int{}}
	if o.cfg.Analysis.Disabled {
		logf("analyze: skipping (disabled)")
		return report, nil
	}

	ignore := strings.Join(o.analysisExcludes(), ",")
	passes := []struct {
		name  string
		args  []string
		parse func(string, *AnalysisReport)
	}{
		{"cc", []string{"cc", "-s", "-a", "-i", ignore, "."}, parseComplexity},
		{"mi", []string{"mi", "-s", "-i", ignore, "."}, parseMaintainability},
	}

	for _, p := range passes {
		logf("analyze: radon %s", strings.Join(p.args, " "))
		res, err := o.runner.Run(ctx, env.module(o.cfg.Project.Root, modRadon, p.args...))
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return report, stageErr(StageAnalyze, 0, err)
			}
			if ferr := o.analysisFailure(&report, p.name, 0, err.Error()); ferr != nil {
				return report, ferr
			}
		case !res.Success():
			if ferr := o.analysisFailure(&report, p.name, res.ExitCode, fmt.Sprintf("exit status %d", res.ExitCode)); ferr != nil {
				return report, ferr
			}
		default:
			p.parse(string(res.Stdout), &report)
		}
	}

	logf("analyze: %d blocks, average complexity %s (%.2f)",
		report.ComplexityBlocks, orDefault(report.ComplexityRank, "?"), report.AverageComplexity)
	return report, nil
}

// analysisFailure records a failed pass. It returns a stage error only
// when analysis gates the pipeline.
func (o *Orchestrator) analysisFailure(report *AnalysisReport, pass string, exitCode int, detail string) error {
	msg := fmt.Sprintf("radon %s: %s", pass, detail)
	if o.cfg.Analysis.Gating {
		return stageErr(StageAnalyze, exitCode, fmt.Errorf("%w: %s", ErrAnalysisFailed, msg))
	}
	warnf("analyze: %s (advisory, continuing)", msg)
	o.status.Warn(msg)
	report.Failures = append(report.Failures, msg)
	return nil
}

// analysisExcludes returns the directories radon ignores: the venv
// directory name plus configured extras, deduplicated and sorted.
func (o *Orchestrator) analysisExcludes() []string {
	seen := map[string]bool{filepath.Base(filepath.Clean(o.cfg.Venv.Dir)): true}
	for _, e := range o.cfg.Analysis.Exclude {
		if e = strings.Trim(strings.TrimSpace(e), "/"); e != "" {
			seen[e] = true
		}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// parseComplexity extracts the summary lines of "radon cc -s -a".
func parseComplexity(output string, r *AnalysisReport) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if m := reBlocks.FindStringSubmatch(line); m != nil {
			r.ComplexityBlocks, _ = strconv.Atoi(m[1])
			continue
		}
		if m := reAverage.FindStringSubmatch(line); m != nil {
			r.ComplexityRank = m[1]
			r.AverageComplexity, _ = strconv.ParseFloat(m[2], 64)
		}
	}
}

// parseMaintainability counts files per rank in "radon mi -s" output.
func parseMaintainability(output string, r *AnalysisReport) {
	if r.Maintainability == nil {
		r.Maintainability = map[string]int{}
	}
	for _, line := range strings.Split(output, "\n") {
		if m := reMIFile.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			r.Maintainability[m[2]]++
		}
	}
}
