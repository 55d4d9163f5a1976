// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const lastRunFileName = "last-run.yaml"

// persist writes the run record to the scratch directory and the run
// history. Failures are logged and never change the pipeline outcome.
func (o *Orchestrator) persist(ctx context.Context, rec RunRecord) {
	outPath := filepath.Join(o.projectPath(o.cfg.Project.ScratchDir), lastRunFileName)
	if err := writeRunRecord(&rec, outPath); err != nil {
		warnf("run: failed to write %s: %v", outPath, err)
	} else {
		debugf("run: wrote %s", outPath)
	}

	if o.history == nil {
		return
	}
	if err := o.history.Record(ctx, rec); err != nil {
		warnf("run: failed to record history: %v", err)
	}
}

// writeRunRecord marshals a RunRecord to YAML and writes it to path.
func writeRunRecord(rec *RunRecord, path string) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadLastRun reads the record of the previous run from scratchDir.
// Returns nil if the file does not exist or cannot be parsed.
func LoadLastRun(scratchDir string) *RunRecord {
	data, err := os.ReadFile(filepath.Join(scratchDir, lastRunFileName))
	if err != nil {
		return nil
	}
	var rec RunRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		debugf("run: parsing %s: %v", lastRunFileName, err)
		return nil
	}
	return &rec
}
