// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// versionProbe prints "major.minor" of the running interpreter.
const versionProbe = `import sys; print("%d.%d" % sys.version_info[:2])`

// Preflight verifies the host interpreter meets Python.MinVersion. It
// runs before anything is installed and has no side effects.
func (o *Orchestrator) Preflight(ctx context.Context) error {
	wantMajor, wantMinor, err := parseVersion(o.cfg.Python.MinVersion)
	if err != nil {
		return stageErr(StagePreflight, 0, fmt.Errorf("min_version: %w", err))
	}
	logf("preflight: requiring %s >= %d.%d", o.cfg.Python.Interpreter, wantMajor, wantMinor)

	if script := o.cfg.Python.VersionCheck; script != "" {
		return o.preflightScript(ctx, script, wantMajor, wantMinor)
	}

	res, err := o.runner.Run(ctx, Command{
		Name:  o.cfg.Python.Interpreter,
		Args:  []string{"-c", versionProbe},
		Dir:   o.cfg.Project.Root,
		Quiet: true,
	})
	if err != nil {
		return stageErr(StagePreflight, 0, fmt.Errorf("querying interpreter: %w", err))
	}
	if !res.Success() {
		return stageErr(StagePreflight, res.ExitCode,
			fmt.Errorf("querying interpreter: %s", strings.TrimSpace(string(res.Stderr))))
	}

	got := strings.TrimSpace(string(res.Stdout))
	major, minor, err := parseVersion(got)
	if err != nil {
		return stageErr(StagePreflight, 0, fmt.Errorf("interpreter reported %q: %w", got, err))
	}
	if !versionAtLeast(major, minor, wantMajor, wantMinor) {
		return stageErr(StagePreflight, 0,
			fmt.Errorf("%w: have %d.%d, need %d.%d", ErrVersionMismatch, major, minor, wantMajor, wantMinor))
	}
	logf("preflight: found python %d.%d", major, minor)
	return nil
}

// preflightScript delegates the check to an external script that exits
// non-zero when the interpreter is too old.
func (o *Orchestrator) preflightScript(ctx context.Context, script string, major, minor int) error {
	logf("preflight: running %s", script)
	res, err := o.runner.Run(ctx, Command{
		Name: o.cfg.Python.Interpreter,
		Args: []string{script, strconv.Itoa(major), strconv.Itoa(minor)},
		Dir:  o.cfg.Project.Root,
	})
	if err != nil {
		return stageErr(StagePreflight, 0, fmt.Errorf("running %s: %w", script, err))
	}
	if !res.Success() {
		return stageErr(StagePreflight, res.ExitCode,
			fmt.Errorf("%w: %s rejected the interpreter", ErrVersionMismatch, script))
	}
	return nil
}

// parseVersion parses "major.minor" or "major.minor.patch".
func parseVersion(s string) (major, minor int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("version %q: want major.minor", s)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil || major < 0 {
		return 0, 0, fmt.Errorf("version %q: bad major", s)
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil || minor < 0 {
		return 0, 0, fmt.Errorf("version %q: bad minor", s)
	}
	return major, minor, nil
}

func versionAtLeast(major, minor, wantMajor, wantMinor int) bool {
	if major != wantMajor {
		return major > wantMajor
	}
	return minor >= wantMinor
}
