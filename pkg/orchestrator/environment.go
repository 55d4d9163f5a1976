// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment describes the interpreter every stage after provisioning
// runs with. It replaces activating a virtualenv in the parent process:
// the child environment is derived from it per command.
type Environment struct {
	// Interpreter is the python executable.
	Interpreter string `yaml:"interpreter"`

	// Dir is the environment root. Empty for the ambient interpreter.
	Dir string `yaml:"dir,omitempty"`

	// BinDir holds the environment's executables.
	BinDir string `yaml:"bin_dir,omitempty"`

	// Provisioned is false when the ambient interpreter is used.
	Provisioned bool `yaml:"provisioned"`

	// Packages lists the install specs applied, in order.
	Packages []string `yaml:"packages,omitempty"`

	// Terminal is exported to children as TERM.
	Terminal string `yaml:"-"`
}

// newVenvEnvironment returns the Environment for a virtualenv at dir.
func newVenvEnvironment(dir, terminal string) Environment {
	bin := filepath.Join(dir, "bin")
	return Environment{
		Interpreter: filepath.Join(bin, "python"),
		Dir:         dir,
		BinDir:      bin,
		Provisioned: true,
		Terminal:    terminal,
	}
}

// ambientEnvironment returns the Environment for the host interpreter.
func ambientEnvironment(interpreter, terminal string) Environment {
	return Environment{Interpreter: interpreter, Terminal: terminal}
}

// Vars returns base with the environment applied: VIRTUAL_ENV and a
// PATH prefix for provisioned environments, PYTHONHOME removed, TERM set.
// base is not modified.
func (e Environment) Vars(base []string) []string {
	env := append([]string(nil), base...)
	if e.Provisioned {
		env = unsetEnvKey(env, "PYTHONHOME")
		env = setEnvKey(env, "VIRTUAL_ENV", e.Dir)
		path := e.BinDir
		if cur, ok := lookupEnvKey(env, "PATH"); ok && cur != "" {
			path += string(os.PathListSeparator) + cur
		}
		env = setEnvKey(env, "PATH", path)
	}
	if e.Terminal != "" {
		env = setEnvKey(env, "TERM", e.Terminal)
	}
	return env
}

// python builds a command running the environment interpreter.
func (e Environment) python(dir string, args ...string) Command {
	return Command{
		Name: e.Interpreter,
		Args: args,
		Dir:  dir,
		Env:  e.Vars(os.Environ()),
	}
}

// module builds "python -m <mod> args..." for the environment.
func (e Environment) module(dir, mod string, args ...string) Command {
	return e.python(dir, append([]string{"-m", mod}, args...)...)
}

func lookupEnvKey(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return strings.TrimPrefix(env[i], prefix), true
		}
	}
	return "", false
}

func setEnvKey(env []string, key, value string) []string {
	return append(unsetEnvKey(env, key), key+"="+value)
}

func unsetEnvKey(env []string, key string) []string {
	prefix := key + "="
	out := env[:0:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return out
}
