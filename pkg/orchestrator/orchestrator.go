// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package orchestrator runs the local CI pipeline for a Python project:
// preflight, environment provisioning, static analysis, unit tests with
// coverage gating, and coverage upload. Each stage is a method on
// Orchestrator and the stages share state only through explicit values
// (Config, Environment, CoverageArtifact).
package orchestrator

import (
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// Orchestrator holds the resolved configuration and the collaborators
// used by every pipeline stage.
type Orchestrator struct {
	cfg       Config
	runner    CommandRunner
	lookPath  func(string) (string, error)
	stdout    io.Writer
	stderr    io.Writer
	client    *http.Client
	reporters []Reporter
	history   *HistoryStore
	status    *StatusPrinter
	now       func() time.Time
}

// Option customizes an Orchestrator built by New.
type Option func(*Orchestrator)

// WithRunner replaces the subprocess runner.
func WithRunner(r CommandRunner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithLookPath replaces exec.LookPath for tool resolution.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *Orchestrator) { o.lookPath = fn }
}

// WithOutput redirects the passthrough output of child processes and
// the status lines.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Orchestrator) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithHTTPClient sets the client used by the coverage uploader.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithReporters overrides the reporters derived from Config.Report.
func WithReporters(r ...Reporter) Option {
	return func(o *Orchestrator) { o.reporters = r }
}

// WithHistory attaches a run history store. Runs are recorded into it
// after every pipeline execution.
func WithHistory(h *HistoryStore) Option {
	return func(o *Orchestrator) { o.history = h }
}

// New creates an Orchestrator. Defaults are applied to cfg.
func New(cfg Config, opts ...Option) *Orchestrator {
	cfg.applyDefaults()
	o := &Orchestrator{
		cfg:      cfg,
		lookPath: exec.LookPath,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		client:   &http.Client{Timeout: 2 * time.Minute},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = NewExecRunner(o.stdout, o.stderr)
	}
	o.status = NewStatusPrinter(o.stdout, colorEnabled(o.cfg.Terminal, o.stdout))
	return o
}

// Config returns the resolved configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}
