// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Binary names.
const (
	binPython      = "python3"
	binVirtualenv  = "virtualenv"
	binVirtualenv3 = "virtualenv-3"
	binGit         = "git"
)

// Python module entry points run through the environment interpreter.
const (
	modPip    = "pip"
	modRadon  = "radon"
	modPytest = "pytest"
)

// Command describes one subprocess invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory. Empty means the process CWD.
	Dir string

	// Env is the complete child environment. Nil inherits the parent's.
	Env []string

	// Quiet captures output without echoing it to the terminal.
	Quiet bool
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the outcome of a finished subprocess. A non-zero ExitCode
// is not an error from the runner's point of view.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// CommandRunner runs subprocesses and waits for them to finish.
// Implementations return an error only when the process could not be
// started or was cancelled.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec, teeing child output to the
// configured writers and to the returned Result.
type ExecRunner struct {
	stdout io.Writer
	stderr io.Writer
}

// NewExecRunner returns an ExecRunner writing passthrough output to
// stdout and stderr.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{stdout: stdout, stderr: stderr}
}

// Run executes cmd and blocks until it exits.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	debugf("exec: %s (dir=%q)", c, c.Dir)
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if c.Env != nil {
		cmd.Env = c.Env
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	if c.Quiet || r.stdout == nil || r.stderr == nil {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	} else {
		cmd.Stdout = io.MultiWriter(r.stdout, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(r.stderr, &stderrBuf)
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			debugf("exec: %s exited %d after %s", c.Name, res.ExitCode, res.Duration.Round(time.Millisecond))
			return res, nil
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s: %w", c.Name, ctx.Err())
		}
		return res, fmt.Errorf("starting %s: %w", c.Name, err)
	}
	debugf("exec: %s finished in %s", c.Name, res.Duration.Round(time.Millisecond))
	return res, nil
}

// orDefault returns val if non-empty, otherwise fallback.
func orDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

// resolveTool returns the absolute path of the first candidate found by
// lookPath. Candidates are tried in order.
func resolveTool(lookPath func(string) (string, error), candidates ...string) (string, error) {
	for _, name := range candidates {
		if name == "" {
			continue
		}
		path, err := lookPath(name)
		if err == nil {
			debugf("resolve: %s -> %s", name, path)
			return path, nil
		}
		debugf("resolve: %s not found: %v", name, err)
	}
	return "", fmt.Errorf("%w: tried %s", ErrToolNotFound, strings.Join(candidates, ", "))
}

// Git helpers. Failures yield empty values: git metadata only decorates
// the coverage upload.

func gitRevParseHEAD(ctx context.Context, r CommandRunner, dir string) string {
	return gitOutput(ctx, r, dir, "rev-parse", "HEAD")
}

func gitCurrentBranch(ctx context.Context, r CommandRunner, dir string) string {
	branch := gitOutput(ctx, r, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if branch == "HEAD" {
		return ""
	}
	return branch
}

func gitOutput(ctx context.Context, r CommandRunner, dir string, args ...string) string {
	res, err := r.Run(ctx, Command{Name: binGit, Args: args, Dir: dir, Quiet: true})
	if err != nil || !res.Success() {
		return ""
	}
	return strings.TrimSpace(string(res.Stdout))
}
