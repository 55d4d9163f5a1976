// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"stage error without code", stageErr(StagePreflight, 0, ErrVersionMismatch), 1},
		{"stage error with code", stageErr(StageTest, 2, ErrTestsFailed), 2},
		{"wrapped stage error", fmt.Errorf("run: %w", stageErr(StageProvision, 5, ErrInstallFailed)), 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStageError_UnwrapsCause(t *testing.T) {
	err := stageErr(StageTest, 0, fmt.Errorf("%w: 41.00%% < 50%%", ErrCoverageBelowThreshold))
	if !errors.Is(err, ErrCoverageBelowThreshold) {
		t.Errorf("errors.Is: %v does not match ErrCoverageBelowThreshold", err)
	}
	if got, want := err.Error(), "test: coverage below threshold: 41.00% < 50%"; got != want {
		t.Errorf("Error: got %q, want %q", got, want)
	}
}

func TestStageError_MessageCarriesExitStatus(t *testing.T) {
	err := stageErr(StageTest, 2, ErrTestsFailed)
	if got, want := err.Error(), "test: unit tests failed (exit status 2)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
