// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func historyRecord(id string, started time.Time, failed Stage, coverage *CoverageArtifact) RunRecord {
	rec := newRunRecord(started)
	rec.ID = id
	rec.FinishedAt = started.Add(90 * time.Second)
	for i := range rec.Stages {
		rec.Stages[i].State = StateSucceeded
		if rec.Stages[i].Stage == failed {
			rec.Stages[i].State = StateFailed
			rec.Stages[i].Error = "boom"
			rec.ExitCode = 1
			break
		}
	}
	rec.Coverage = coverage
	return rec
}

func TestHistory_RecentNewestFirst(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, h.Record(ctx, historyRecord("old", base, StagePreflight, nil)))
	ok := historyRecord("new", base.Add(time.Hour), "", &CoverageArtifact{Percent: 64.5})
	ok.Environment = &Environment{Provisioned: true}
	require.NoError(t, h.Record(ctx, ok))

	entries, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "new", entries[0].ID)
	assert.Equal(t, 0, entries[0].ExitCode)
	assert.Equal(t, Stage(""), entries[0].FailedStage)
	assert.Equal(t, 64.5, entries[0].CoveragePercent)
	assert.True(t, entries[0].Provisioned)
	assert.Equal(t, 90*time.Second, entries[0].Duration)
	assert.True(t, entries[0].StartedAt.Equal(base.Add(time.Hour)))

	assert.Equal(t, "old", entries[1].ID)
	assert.Equal(t, 1, entries[1].ExitCode)
	assert.Equal(t, StagePreflight, entries[1].FailedStage)
	assert.Zero(t, entries[1].CoveragePercent)
	assert.False(t, entries[1].Provisioned)
}

func TestHistory_Limit(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, h.Record(ctx, historyRecord(id, base.Add(time.Duration(i)*time.Minute), "", nil)))
	}

	entries, err := h.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
}

func TestHistory_DuplicateRunIDRejected(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	rec := historyRecord("dup", time.Now(), "", nil)
	require.NoError(t, h.Record(ctx, rec))
	assert.Error(t, h.Record(ctx, rec))

	entries, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the failed insert leaves no partial rows")
}

func TestHistory_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.Record(context.Background(), historyRecord("kept", time.Now(), "", nil)))
	require.NoError(t, h.Close())

	h2, err := OpenHistory(path)
	require.NoError(t, err)
	defer h2.Close()
	entries, err := h2.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].ID)
}
