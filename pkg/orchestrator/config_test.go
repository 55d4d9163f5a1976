// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// --- LoadConfig ---

func TestLoadConfig_HierarchicalYAML(t *testing.T) {
	yaml := `
project:
  root: /srv/app
  source_dirs: [training/, utils/]
python:
  interpreter: python3.8
  min_version: "3.7"
venv:
  dir: .venv
  tools: [virtualenv]
  git_packages: []
  pinned: [numpy==1.16.4]
analysis:
  gating: true
  exclude: [docs]
tests:
  paths: [tests/]
  coverage_threshold: 80
  extra_args: ["-x"]
report:
  codecov:
    url: https://cov.example.com/upload
terminal: screen
`
	cfg, err := LoadConfig(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Project.Root != "/srv/app" {
		t.Errorf("Root: got %q, want %q", cfg.Project.Root, "/srv/app")
	}
	if diff := cmp.Diff([]string{"training/", "utils/"}, cfg.Project.SourceDirs); diff != "" {
		t.Errorf("SourceDirs (-want +got):\n%s", diff)
	}
	if cfg.Python.Interpreter != "python3.8" {
		t.Errorf("Interpreter: got %q", cfg.Python.Interpreter)
	}
	if cfg.Python.MinVersion != "3.7" {
		t.Errorf("MinVersion: got %q", cfg.Python.MinVersion)
	}
	if cfg.Venv.Dir != ".venv" {
		t.Errorf("Venv.Dir: got %q", cfg.Venv.Dir)
	}
	if len(cfg.Venv.GitPackages) != 0 {
		t.Errorf("GitPackages: explicit empty list should be kept, got %v", cfg.Venv.GitPackages)
	}
	if !cfg.Analysis.Gating {
		t.Error("Analysis.Gating: got false, want true")
	}
	if cfg.Tests.CoverageThreshold != 80 {
		t.Errorf("CoverageThreshold: got %d, want 80", cfg.Tests.CoverageThreshold)
	}
	if cfg.Report.Codecov.URL != "https://cov.example.com/upload" {
		t.Errorf("Codecov.URL: got %q", cfg.Report.Codecov.URL)
	}
	if cfg.Terminal != "screen" {
		t.Errorf("Terminal: got %q, want screen", cfg.Terminal)
	}
	// Unset fields still get defaults.
	if cfg.Tests.CoverageFile != "coverage.xml" {
		t.Errorf("CoverageFile: got %q, want coverage.xml", cfg.Tests.CoverageFile)
	}
	if diff := cmp.Diff([]string{"pytest", "pytest-cov", "radon"}, cfg.Venv.Tooling); diff != "" {
		t.Errorf("Tooling (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_EmptyFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeTemp(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeTemp(t, "venv:\n  skp: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skp")
}

func TestLoadConfig_InvalidMinVersion(t *testing.T) {
	_, err := LoadConfig(writeTemp(t, "python:\n  min_version: three\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "python.min_version")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "python3", cfg.Python.Interpreter)
	assert.Equal(t, "3.6", cfg.Python.MinVersion)
	assert.Equal(t, []string{"virtualenv", "virtualenv-3"}, cfg.Venv.Tools)
	assert.Equal(t, []string{defaultAnalyticsPackage}, cfg.Venv.GitPackages)
	assert.Equal(t, []string{"hpfrec==0.2.2.9", "numpy==1.16.4"}, cfg.Venv.Pinned)
	assert.Equal(t, []string{"training/"}, cfg.Project.SourceDirs)
	assert.Equal(t, []string{"tests/unit_tests/"}, cfg.Tests.Paths)
	assert.Equal(t, DefaultCoverageThreshold, cfg.Tests.CoverageThreshold)
	assert.Equal(t, filepath.Join(".pyci", "history.db"), cfg.History.Path)
	assert.Equal(t, "xterm", cfg.Terminal)
	assert.False(t, cfg.Venv.Skip)
	assert.False(t, cfg.Analysis.Gating)
	assert.False(t, cfg.Report.Archive.Enabled())
	require.NoError(t, cfg.Validate())
}

// --- ApplyEnv ---

func TestApplyEnv_NOVENV(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"unset", map[string]string{}, false},
		{"one", map[string]string{"NOVENV": "1"}, true},
		{"zero", map[string]string{"NOVENV": "0"}, false},
		{"true is not one", map[string]string{"NOVENV": "true"}, false},
		{"empty", map[string]string{"NOVENV": ""}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			require.NoError(t, cfg.ApplyEnv(mapLookup(tc.env)))
			assert.Equal(t, tc.want, cfg.Venv.Skip)
		})
	}
}

func TestApplyEnv_OverridesAndCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Report.Codecov.Token = "from-file"
	cfg.Report.Archive.Bucket = "file-bucket"
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		"TERM":                    "dumb",
		"CODECOV_TOKEN":           "from-env",
		"PYCI_COVERAGE_THRESHOLD": " 65 ",
		"ARCHIVE_S3_ENDPOINT":     "localhost:9000",
		"ARCHIVE_S3_ACCESS_KEY":   "ak",
		"ARCHIVE_S3_SECRET_KEY":   "sk",
	}))
	require.NoError(t, err)
	assert.Equal(t, "dumb", cfg.Terminal)
	assert.Equal(t, "from-env", cfg.Report.Codecov.Token)
	assert.Equal(t, 65, cfg.Tests.CoverageThreshold)
	assert.Equal(t, "localhost:9000", cfg.Report.Archive.Endpoint)
	assert.Equal(t, "file-bucket", cfg.Report.Archive.Bucket, "unset env keeps the file value")
	assert.Equal(t, "us-east-1", cfg.Report.Archive.Region)
	assert.True(t, cfg.Report.Archive.Enabled())
}

func TestApplyEnv_InvalidThreshold(t *testing.T) {
	for _, v := range []string{"abc", "-1", "101"} {
		cfg := DefaultConfig()
		err := cfg.ApplyEnv(mapLookup(map[string]string{"PYCI_COVERAGE_THRESHOLD": v}))
		assert.Error(t, err, "value %q", v)
	}
}

// --- Validate ---

func TestValidate_ThresholdRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tests.CoverageThreshold = 120
	assert.Error(t, cfg.Validate())
}

func TestValidate_NoToolsOnlyMattersWhenProvisioning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Venv.Tools = nil
	assert.Error(t, cfg.Validate())
	cfg.Venv.Skip = true
	assert.NoError(t, cfg.Validate())
}
