// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StagePreflight Stage = "preflight"
	StageProvision Stage = "provision"
	StageAnalyze   Stage = "analyze"
	StageTest      Stage = "test"
	StageReport    Stage = "report"
)

// Stages lists every stage in the order Run executes them.
var Stages = []Stage{StagePreflight, StageProvision, StageAnalyze, StageTest, StageReport}

// StageState is the lifecycle state of one stage in a run.
type StageState string

const (
	StatePending   StageState = "pending"
	StateRunning   StageState = "running"
	StateSucceeded StageState = "succeeded"
	StateFailed    StageState = "failed"
	StateSkipped   StageState = "skipped"
)

// StageRecord is the outcome of one stage.
type StageRecord struct {
	Stage    Stage         `yaml:"stage"`
	State    StageState    `yaml:"state"`
	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
}

// RunRecord summarizes one pipeline execution.
type RunRecord struct {
	ID          string            `yaml:"id"`
	StartedAt   time.Time         `yaml:"started_at"`
	FinishedAt  time.Time         `yaml:"finished_at"`
	ExitCode    int               `yaml:"exit_code"`
	Stages      []StageRecord     `yaml:"stages"`
	Environment *Environment      `yaml:"environment,omitempty"`
	Analysis    *AnalysisReport   `yaml:"analysis,omitempty"`
	Coverage    *CoverageArtifact `yaml:"coverage,omitempty"`
}

// stage returns the record for s.
func (r *RunRecord) stage(s Stage) *StageRecord {
	for i := range r.Stages {
		if r.Stages[i].Stage == s {
			return &r.Stages[i]
		}
	}
	return nil
}

// State returns the state of stage s, or "" when s is unknown.
func (r *RunRecord) State(s Stage) StageState {
	if rec := r.stage(s); rec != nil {
		return rec.State
	}
	return ""
}

func newRunRecord(now time.Time) RunRecord {
	rec := RunRecord{ID: uuid.NewString(), StartedAt: now}
	for _, s := range Stages {
		rec.Stages = append(rec.Stages, StageRecord{Stage: s, State: StatePending})
	}
	return rec
}

// Run executes the pipeline top to bottom and stops at the first failing
// stage. The returned record is complete for every stage that ran; later
// stages stay pending. The record is persisted (last-run.yaml and the
// run history) whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context) (RunRecord, error) {
	rec := newRunRecord(o.now())
	logf("run: %s starting in %s", rec.ID, o.cfg.Project.Root)

	err := o.runStages(ctx, &rec)

	rec.FinishedAt = o.now()
	rec.ExitCode = ExitCode(err)
	o.persist(ctx, rec)

	if err != nil {
		o.status.Fail(fmt.Sprintf("pipeline failed: %v", err))
		logf("run: %s failed after %s: %v", rec.ID, rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond), err)
		return rec, err
	}
	o.status.Pass("pipeline passed")
	logf("run: %s passed in %s", rec.ID, rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond))
	return rec, nil
}

func (o *Orchestrator) runStages(ctx context.Context, rec *RunRecord) error {
	if err := o.step(rec, StagePreflight, func() error {
		return o.Preflight(ctx)
	}); err != nil {
		return err
	}

	var env Environment
	if err := o.step(rec, StageProvision, func() error {
		var err error
		env, err = o.Provision(ctx)
		return err
	}); err != nil {
		return err
	}
	rec.Environment = &env

	if o.cfg.Analysis.Disabled {
		rec.stage(StageAnalyze).State = StateSkipped
	} else if err := o.step(rec, StageAnalyze, func() error {
		report, err := o.Analyze(ctx, env)
		rec.Analysis = &report
		return err
	}); err != nil {
		return err
	}

	var artifact CoverageArtifact
	if err := o.step(rec, StageTest, func() error {
		var err error
		artifact, err = o.RunTests(ctx, env)
		if artifact.Path != "" {
			rec.Coverage = &artifact
		}
		return err
	}); err != nil {
		return err
	}

	return o.step(rec, StageReport, func() error {
		return o.Report(ctx, rec.ID, artifact)
	})
}

// step runs fn as stage s, recording its state transitions and timing.
func (o *Orchestrator) step(rec *RunRecord, s Stage, fn func() error) error {
	sr := rec.stage(s)
	sr.State = StateRunning
	start := o.now()
	err := fn()
	sr.Duration = o.now().Sub(start)
	if err != nil {
		sr.State = StateFailed
		sr.Error = err.Error()
		return err
	}
	sr.State = StateSucceeded
	return nil
}
