// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"errors"
	"fmt"
)

// Pipeline failure causes. Stage methods wrap them in a *StageError.
var (
	ErrVersionMismatch        = errors.New("python version below minimum")
	ErrToolNotFound           = errors.New("no environment tool found")
	ErrVenvCreate             = errors.New("python virtual environment can't be initialized")
	ErrInstallFailed          = errors.New("package installation failed")
	ErrAnalysisFailed         = errors.New("static analysis failed")
	ErrTestsFailed            = errors.New("unit tests failed")
	ErrCoverageMissing        = errors.New("coverage report not found")
	ErrCoverageBelowThreshold = errors.New("coverage below threshold")
	ErrUploadFailed           = errors.New("coverage upload failed")
	ErrMissingToken           = errors.New("coverage upload token not configured")
)

// StageError records which stage failed and the exit status the
// pipeline should end with.
type StageError struct {
	Stage    Stage
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: %v (exit status %d)", e.Stage, e.Err, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageErr builds a *StageError. exitCode <= 0 means "use 1".
func stageErr(stage Stage, exitCode int, err error) *StageError {
	return &StageError{Stage: stage, ExitCode: exitCode, Err: err}
}

// ExitCode maps a pipeline error to a process exit status: 0 for nil,
// the failing subprocess's status when one is known, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *StageError
	if errors.As(err, &se) && se.ExitCode > 0 {
		return se.ExitCode
	}
	return 1
}
