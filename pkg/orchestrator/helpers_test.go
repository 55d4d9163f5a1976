// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// writeTemp writes content to a temp file and returns its path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return f.Name()
}

// writeFile creates path (and its parents) with content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- fake command runner ---

// fakeRunner records every command and answers with handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []Command
	handler func(Command) (Result, error)
}

func newFakeRunner(handler func(Command) (Result, error)) *fakeRunner {
	return &fakeRunner{handler: handler}
}

func (f *fakeRunner) Run(_ context.Context, c Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.handler == nil {
		return Result{}, nil
	}
	return f.handler(c)
}

// commands returns a snapshot of the recorded commands.
func (f *fakeRunner) commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// count returns how many recorded commands satisfy match.
func (f *fakeRunner) count(match func(Command) bool) int {
	n := 0
	for _, c := range f.commands() {
		if match(c) {
			n++
		}
	}
	return n
}

// pipArgs returns the argument list of every pip install, in order.
func (f *fakeRunner) pipArgs() [][]string {
	var out [][]string
	for _, c := range f.commands() {
		if isModule(c, modPip) {
			out = append(out, c.Args[3:])
		}
	}
	return out
}

func isModule(c Command, mod string) bool {
	return len(c.Args) >= 2 && c.Args[0] == "-m" && c.Args[1] == mod
}

func isVenvCreate(c Command) bool {
	return strings.HasPrefix(filepath.Base(c.Name), binVirtualenv)
}

func envHas(env []string, kv string) bool {
	for _, e := range env {
		if e == kv {
			return true
		}
	}
	return false
}

// fakeLookPath resolves only the named tools, under /usr/bin.
func fakeLookPath(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

// --- scripted python toolchain ---

const sampleRadonCC = `training/train.py
    F 10:0 train_model - B (7)
    F 40:0 load_data - A (2)
    C 60:0 Recommender - A (3)

3 blocks (classes, functions, methods) analyzed.
Average complexity: A (4.0)
`

const sampleRadonMI = `training/train.py - A (62.31)
training/util.py - B (15.20)
training/__init__.py - A (100.00)
`

// toolchain scripts the behaviour of python, virtualenv, pip, radon,
// pytest and git as seen through the runner.
type toolchain struct {
	version    string
	venvExit   int
	pipExit    int
	radonExit  int
	pytestExit int
	coverage   float64
	noReport   bool
}

func healthyToolchain() toolchain {
	return toolchain{version: "3.8", coverage: 0.72}
}

func (tc toolchain) handle(c Command) (Result, error) {
	switch {
	case len(c.Args) == 2 && c.Args[0] == "-c":
		return Result{Stdout: []byte(tc.version + "\n")}, nil
	case isVenvCreate(c):
		return Result{ExitCode: tc.venvExit}, nil
	case isModule(c, modPip):
		return Result{ExitCode: tc.pipExit}, nil
	case isModule(c, modRadon):
		if tc.radonExit != 0 {
			return Result{ExitCode: tc.radonExit, Stderr: []byte("radon: error")}, nil
		}
		if c.Args[2] == "cc" {
			return Result{Stdout: []byte(sampleRadonCC)}, nil
		}
		return Result{Stdout: []byte(sampleRadonMI)}, nil
	case isModule(c, modPytest):
		if !tc.noReport {
			if err := writeCoverageXML(coverageReportArg(c), tc.coverage); err != nil {
				return Result{}, err
			}
		}
		return Result{ExitCode: tc.pytestExit}, nil
	case c.Name == binGit:
		return Result{ExitCode: 128, Stderr: []byte("fatal: not a git repository")}, nil
	}
	return Result{ExitCode: 127}, nil
}

func coverageReportArg(c Command) string {
	for _, a := range c.Args {
		if p, ok := strings.CutPrefix(a, "--cov-report=xml:"); ok {
			return p
		}
	}
	return ""
}

func coverageXML(lineRate float64) string {
	return fmt.Sprintf(`<?xml version="1.0" ?>
<coverage version="5.5" timestamp="1700000000000" lines-valid="200" lines-covered="%d" line-rate="%.4f" branch-rate="0" branches-covered="0" branches-valid="0" complexity="0">
	<sources>
		<source>/src</source>
	</sources>
	<packages/>
</coverage>
`, int(lineRate*200), lineRate)
}

func writeCoverageXML(path string, lineRate float64) error {
	if path == "" {
		return fmt.Errorf("no xml report path on the pytest command line")
	}
	return os.WriteFile(path, []byte(coverageXML(lineRate)), 0o644)
}

// --- fixtures ---

// testProject creates a project root with a requirements file and
// returns a Config pointing at it.
func testProject(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "requirements.txt"), "scipy\n")
	cfg := DefaultConfig()
	cfg.Project.Root = root
	return cfg
}

// recordingReporter captures uploads and whether the report existed at
// upload time.
type recordingReporter struct {
	name string
	err  error

	mu      sync.Mutex
	uploads []Upload
	existed []bool
}

func (r *recordingReporter) Name() string { return orDefault(r.name, "recording") }

func (r *recordingReporter) Upload(_ context.Context, u Upload) error {
	_, statErr := os.Stat(u.Artifact.Path)
	r.mu.Lock()
	r.uploads = append(r.uploads, u)
	r.existed = append(r.existed, statErr == nil)
	r.mu.Unlock()
	return r.err
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.uploads)
}

// newTestOrchestrator wires a scripted toolchain, a fake lookPath that
// finds only virtualenv, and a recording reporter.
func newTestOrchestrator(t *testing.T, cfg Config, tc toolchain, opts ...Option) (*Orchestrator, *fakeRunner, *recordingReporter, *bytes.Buffer) {
	t.Helper()
	runner := newFakeRunner(tc.handle)
	rep := &recordingReporter{}
	var out bytes.Buffer
	base := []Option{
		WithRunner(runner),
		WithLookPath(fakeLookPath(binVirtualenv)),
		WithOutput(&out, &out),
		WithReporters(rep),
	}
	return New(cfg, append(base, opts...)...), runner, rep, &out
}
