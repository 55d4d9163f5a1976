// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the pipeline configuration read from the project
// root when no explicit path is given.
const DefaultConfigFile = "pipeline.yaml"

// DefaultCoverageThreshold is the minimum total line coverage, in percent.
const DefaultCoverageThreshold = 50

// Config holds all pipeline settings. Callers either construct a Config
// in Go code and pass it to New(), or place a pipeline.yaml at the
// project root and call LoadConfig().
type Config struct {
	Project  ProjectConfig  `yaml:"project"`
	Python   PythonConfig   `yaml:"python"`
	Venv     VenvConfig     `yaml:"venv"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Tests    TestsConfig    `yaml:"tests"`
	Report   ReportConfig   `yaml:"report"`
	History  HistoryConfig  `yaml:"history"`

	// Terminal is the terminal type handed to child processes and used
	// to decide on coloured output (default "xterm").
	Terminal string `yaml:"terminal"`
}

// ProjectConfig describes the Python project under test.
type ProjectConfig struct {
	// Root is the project directory every command runs in (default ".").
	Root string `yaml:"root"`

	// SourceDirs are the packages measured for coverage
	// (e.g., ["training/"]).
	SourceDirs []string `yaml:"source_dirs"`

	// ScratchDir holds pipeline state such as last-run.yaml (default ".pyci").
	ScratchDir string `yaml:"scratch_dir"`
}

// PythonConfig selects the interpreter and its minimum version.
type PythonConfig struct {
	// Interpreter is the host interpreter (default "python3").
	Interpreter string `yaml:"interpreter"`

	// MinVersion is the minimum "major.minor" (default "3.6").
	MinVersion string `yaml:"min_version"`

	// VersionCheck is an optional checker script invoked as
	// "<interpreter> <script> <major> <minor>". When empty the
	// interpreter is queried directly.
	VersionCheck string `yaml:"version_check"`
}

// VenvConfig controls environment provisioning.
type VenvConfig struct {
	// Skip uses the ambient interpreter without creating an environment.
	// NOVENV=1 sets it.
	Skip bool `yaml:"skip"`

	// Dir is the environment directory relative to the project root
	// (default "venv").
	Dir string `yaml:"dir"`

	// Tools are the environment creation binaries tried in order
	// (default ["virtualenv", "virtualenv-3"]).
	Tools []string `yaml:"tools"`

	// GitPackages are installed from source repositories.
	GitPackages []string `yaml:"git_packages"`

	// Requirements is the requirements file (default "requirements.txt").
	Requirements string `yaml:"requirements"`

	// Pinned are explicit name==version specs installed after the
	// requirements file.
	Pinned []string `yaml:"pinned"`

	// Tooling are the packages the analysis and test stages need
	// (default ["pytest", "pytest-cov", "radon"]).
	Tooling []string `yaml:"tooling"`
}

// AnalysisConfig controls the static analysis stage.
type AnalysisConfig struct {
	// Disabled skips the stage.
	Disabled bool `yaml:"disabled"`

	// Gating turns analysis failures into pipeline failures.
	Gating bool `yaml:"gating"`

	// Exclude lists extra directories to ignore. The environment
	// directory is always excluded.
	Exclude []string `yaml:"exclude"`
}

// TestsConfig controls the unit test stage.
type TestsConfig struct {
	// Paths are handed to pytest (default ["tests/unit_tests/"]).
	Paths []string `yaml:"paths"`

	// CoverageThreshold is the minimum total coverage in percent
	// (default 50).
	CoverageThreshold int `yaml:"coverage_threshold"`

	// CoverageFile is the XML report path (default "coverage.xml").
	CoverageFile string `yaml:"coverage_file"`

	// ExtraArgs are appended to the pytest command line.
	ExtraArgs []string `yaml:"extra_args"`
}

// ReportConfig controls the coverage reporters.
type ReportConfig struct {
	Codecov CodecovConfig `yaml:"codecov"`
	Archive ArchiveConfig `yaml:"archive"`
}

// CodecovConfig configures the bearer-token coverage upload.
type CodecovConfig struct {
	// Disabled skips the upload.
	Disabled bool `yaml:"disabled"`

	// URL is the upload endpoint (default "https://codecov.io/upload/v2").
	URL string `yaml:"url"`

	// Token is the bearer credential. CODECOV_TOKEN overrides it.
	Token string `yaml:"token"`
}

// ArchiveConfig configures the optional S3 copy of the coverage report.
// The archive is enabled when Bucket is set.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(a.Bucket) != ""
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	// Disabled turns off run recording.
	Disabled bool `yaml:"disabled"`

	// Path is the database file (default "<scratch_dir>/history.db").
	Path string `yaml:"path"`
}

// defaultAnalyticsPackage is the recommendation analytics library the
// training code imports, installed straight from its repository.
const defaultAnalyticsPackage = "git+https://github.com/fabric8-analytics/fabric8-analytics-rudra"

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if len(c.Project.SourceDirs) == 0 {
		c.Project.SourceDirs = []string{"training/"}
	}
	if c.Project.ScratchDir == "" {
		c.Project.ScratchDir = ".pyci"
	}
	if c.Python.Interpreter == "" {
		c.Python.Interpreter = binPython
	}
	if c.Python.MinVersion == "" {
		c.Python.MinVersion = "3.6"
	}
	if c.Venv.Dir == "" {
		c.Venv.Dir = "venv"
	}
	if len(c.Venv.Tools) == 0 {
		c.Venv.Tools = []string{binVirtualenv, binVirtualenv3}
	}
	if c.Venv.GitPackages == nil {
		c.Venv.GitPackages = []string{defaultAnalyticsPackage}
	}
	if c.Venv.Requirements == "" {
		c.Venv.Requirements = "requirements.txt"
	}
	if c.Venv.Pinned == nil {
		c.Venv.Pinned = []string{"hpfrec==0.2.2.9", "numpy==1.16.4"}
	}
	if len(c.Venv.Tooling) == 0 {
		c.Venv.Tooling = []string{"pytest", "pytest-cov", "radon"}
	}
	if len(c.Tests.Paths) == 0 {
		c.Tests.Paths = []string{"tests/unit_tests/"}
	}
	if c.Tests.CoverageThreshold == 0 {
		c.Tests.CoverageThreshold = DefaultCoverageThreshold
	}
	if c.Tests.CoverageFile == "" {
		c.Tests.CoverageFile = "coverage.xml"
	}
	if c.Report.Codecov.URL == "" {
		c.Report.Codecov.URL = "https://codecov.io/upload/v2"
	}
	if c.Report.Archive.Region == "" {
		c.Report.Archive.Region = "us-east-1"
	}
	if c.Report.Archive.Prefix == "" {
		c.Report.Archive.Prefix = "coverage"
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Project.ScratchDir, "history.db")
	}
	if c.Terminal == "" {
		c.Terminal = "xterm"
	}
}

// ApplyEnv overlays environment variables on the configuration. lookup
// is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("NOVENV"); ok && v == "1" {
		c.Venv.Skip = true
	}
	if v, ok := lookup("TERM"); ok && v != "" {
		c.Terminal = v
	}
	if v, ok := lookup("CODECOV_TOKEN"); ok && v != "" {
		c.Report.Codecov.Token = v
	}
	if v, ok := lookup("PYCI_COVERAGE_THRESHOLD"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 || n > 100 {
			return fmt.Errorf("PYCI_COVERAGE_THRESHOLD: invalid percentage %q", v)
		}
		c.Tests.CoverageThreshold = n
	}
	archive := &c.Report.Archive
	archive.Endpoint = firstNonEmpty(envValue(lookup, "ARCHIVE_S3_ENDPOINT"), archive.Endpoint)
	archive.Bucket = firstNonEmpty(envValue(lookup, "ARCHIVE_S3_BUCKET"), archive.Bucket)
	archive.Region = firstNonEmpty(envValue(lookup, "ARCHIVE_S3_REGION"), archive.Region)
	archive.AccessKey = firstNonEmpty(envValue(lookup, "ARCHIVE_S3_ACCESS_KEY"), archive.AccessKey)
	archive.SecretKey = firstNonEmpty(envValue(lookup, "ARCHIVE_S3_SECRET_KEY"), archive.SecretKey)
	c.applyDefaults()
	return nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if _, _, err := parseVersion(c.Python.MinVersion); err != nil {
		return fmt.Errorf("python.min_version: %w", err)
	}
	if c.Tests.CoverageThreshold < 0 || c.Tests.CoverageThreshold > 100 {
		return fmt.Errorf("tests.coverage_threshold: %d is not a percentage", c.Tests.CoverageThreshold)
	}
	if len(c.Venv.Tools) == 0 && !c.Venv.Skip {
		return fmt.Errorf("venv.tools: no environment tool configured")
	}
	return nil
}

// LoadConfig reads a pipeline YAML file and returns a Config with
// defaults applied. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envValue returns the trimmed value of key, or "" when unset.
func envValue(lookup func(string) (string, bool), key string) string {
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

// firstNonEmpty returns the first argument that is not empty.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
