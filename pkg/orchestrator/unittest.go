// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// RunTests runs the unit test suite under env with coverage
// instrumentation and the coverage gate. Any stale report is removed
// first so a report on disk always belongs to this run.
func (o *Orchestrator) RunTests(ctx context.Context, env Environment) (CoverageArtifact, error) {
	reportPath, err := filepath.Abs(o.projectPath(o.cfg.Tests.CoverageFile))
	if err != nil {
		return CoverageArtifact{}, stageErr(StageTest, 0, fmt.Errorf("resolving coverage file: %w", err))
	}
	if err := os.Remove(reportPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return CoverageArtifact{}, stageErr(StageTest, 0, fmt.Errorf("removing stale coverage report: %w", err))
	}

	cmd := env.module(o.cfg.Project.Root, modPytest, o.pytestArgs(reportPath)...)
	cmd.Env = setEnvKey(cmd.Env, "PYTHONDONTWRITEBYTECODE", "1")

	logf("test: %s", cmd)
	res, err := o.runner.Run(ctx, cmd)
	if err != nil {
		return CoverageArtifact{}, stageErr(StageTest, 0, fmt.Errorf("running pytest: %w", err))
	}
	if !res.Success() {
		o.status.Fail("tests failed")
		return CoverageArtifact{}, stageErr(StageTest, res.ExitCode,
			fmt.Errorf("%w (coverage gate %d%%)", ErrTestsFailed, o.cfg.Tests.CoverageThreshold))
	}
	o.status.Pass("tests passed")

	if _, err := os.Stat(reportPath); err != nil {
		return CoverageArtifact{}, stageErr(StageTest, 0, fmt.Errorf("%w: %s", ErrCoverageMissing, reportPath))
	}
	artifact, err := ParseCoverageXML(reportPath)
	if err != nil {
		return CoverageArtifact{}, stageErr(StageTest, 0, err)
	}
	if artifact.Percent < float64(o.cfg.Tests.CoverageThreshold) {
		o.status.Fail(fmt.Sprintf("coverage %.2f%% below %d%%", artifact.Percent, o.cfg.Tests.CoverageThreshold))
		return artifact, stageErr(StageTest, 0, fmt.Errorf("%w: %.2f%% < %d%%",
			ErrCoverageBelowThreshold, artifact.Percent, o.cfg.Tests.CoverageThreshold))
	}
	logf("test: coverage %.2f%% (threshold %d%%) report %s",
		artifact.Percent, o.cfg.Tests.CoverageThreshold, reportPath)
	return artifact, nil
}

// pytestArgs builds the pytest argument list.
func (o *Orchestrator) pytestArgs(reportPath string) []string {
	t := o.cfg.Tests
	var args []string
	for _, src := range o.cfg.Project.SourceDirs {
		args = append(args, "--cov="+src)
	}
	args = append(args,
		"--cov-report=term-missing",
		"--cov-report=xml:"+reportPath,
		"--cov-fail-under="+strconv.Itoa(t.CoverageThreshold),
		"-vv",
	)
	args = append(args, t.ExtraArgs...)
	return append(args, t.Paths...)
}
