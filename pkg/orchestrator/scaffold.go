// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// requirementsCandidates are checked in order when detecting the
// requirements file.
var requirementsCandidates = []string{
	"requirements.txt",
	"requirements/base.txt",
	"requirements-dev.txt",
}

// testDirCandidates are checked in order when detecting the test paths.
var testDirCandidates = []string{
	"tests/unit_tests",
	"tests/unit",
	"tests",
	"test",
}

// Scaffold detects the Python project layout in targetDir and writes a
// pipeline.yaml with the detected values on top of the defaults. An
// existing pipeline.yaml is left untouched unless force is set.
func (o *Orchestrator) Scaffold(targetDir string, force bool) (string, error) {
	logf("scaffold: targetDir=%s", targetDir)

	cfgPath := filepath.Join(targetDir, DefaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return cfgPath, fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := DefaultConfig()
	cfg.Venv.Dir = o.cfg.Venv.Dir

	if req := detectRequirements(targetDir); req != "" {
		cfg.Venv.Requirements = req
		logf("scaffold: detected requirements=%s", req)
	}

	tests := detectTestDir(targetDir)
	if tests != "" {
		cfg.Tests.Paths = []string{tests + "/"}
		logf("scaffold: detected tests=%s", tests)
	}

	srcDirs := detectSourcePackages(targetDir, cfg.Venv.Dir, tests)
	if len(srcDirs) > 0 {
		cfg.Project.SourceDirs = srcDirs
		logf("scaffold: detected source_dirs=%v", srcDirs)
	}

	logf("scaffold: writing %s", cfgPath)
	if err := writeScaffoldConfig(cfgPath, cfg); err != nil {
		return cfgPath, fmt.Errorf("writing %s: %w", DefaultConfigFile, err)
	}
	logf("scaffold: done")
	return cfgPath, nil
}

// detectRequirements returns the first requirements file present.
func detectRequirements(targetDir string) string {
	for _, c := range requirementsCandidates {
		if fileExists(filepath.Join(targetDir, c)) {
			return c
		}
	}
	return ""
}

// detectTestDir returns the first test directory present.
func detectTestDir(targetDir string) string {
	for _, c := range testDirCandidates {
		if info, err := os.Stat(filepath.Join(targetDir, c)); err == nil && info.IsDir() {
			return c
		}
	}
	return ""
}

// detectSourcePackages returns top-level directories containing an
// __init__.py, skipping hidden dirs, the venv dir and the test dir.
func detectSourcePackages(targetDir, venvDir, testDir string) []string {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return nil
	}
	skip := map[string]bool{
		filepath.Base(venvDir): true,
		"build":                true,
		"dist":                 true,
	}
	if testDir != "" {
		skip[strings.SplitN(testDir, "/", 2)[0]] = true
	}

	var dirs []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || skip[name] {
			continue
		}
		if fileExists(filepath.Join(targetDir, name, "__init__.py")) {
			dirs = append(dirs, name+"/")
		}
	}
	sort.Strings(dirs)
	return dirs
}

// writeScaffoldConfig marshals cfg to YAML at path. Credentials are
// never written; they come from the environment.
func writeScaffoldConfig(path string, cfg Config) error {
	cfg.Report.Codecov.Token = ""
	cfg.Report.Archive.AccessKey = ""
	cfg.Report.Archive.SecretKey = ""
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	header := "# Pipeline configuration. Secrets come from CODECOV_TOKEN and ARCHIVE_S3_* variables.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
