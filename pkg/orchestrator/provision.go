// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// msgVenvCreate is printed when the environment cannot be created.
const msgVenvCreate = "Python virtual environment can't be initialized"

// Provision creates the virtual environment and installs the package
// set. With Venv.Skip it returns the ambient interpreter and issues no
// commands at all.
func (o *Orchestrator) Provision(ctx context.Context) (Environment, error) {
	if o.cfg.Venv.Skip {
		logf("provision: skipping (NOVENV set), using %s", o.cfg.Python.Interpreter)
		return ambientEnvironment(o.cfg.Python.Interpreter, o.cfg.Terminal), nil
	}

	tool, err := resolveTool(o.lookPath, o.cfg.Venv.Tools...)
	if err != nil {
		return Environment{}, stageErr(StageProvision, 1, err)
	}

	dir, err := filepath.Abs(o.projectPath(o.cfg.Venv.Dir))
	if err != nil {
		return Environment{}, stageErr(StageProvision, 1, fmt.Errorf("resolving venv dir: %w", err))
	}
	logf("provision: %s -p %s %s", tool, o.cfg.Python.Interpreter, dir)
	res, err := o.runner.Run(ctx, Command{
		Name: tool,
		Args: []string{"-p", o.cfg.Python.Interpreter, dir},
		Dir:  o.cfg.Project.Root,
	})
	if err != nil || !res.Success() {
		o.status.Fail(msgVenvCreate)
		cause := ErrVenvCreate
		if err != nil {
			cause = fmt.Errorf("%w: %v", ErrVenvCreate, err)
		}
		return Environment{}, stageErr(StageProvision, 1, cause)
	}

	env := newVenvEnvironment(dir, o.cfg.Terminal)
	for _, step := range o.installSteps() {
		if err := o.pipInstall(ctx, &env, step...); err != nil {
			return env, err
		}
	}
	logf("provision: done (%d install steps)", len(env.Packages))
	return env, nil
}

// installSteps returns the pip argument lists in install order: pip
// itself, source packages, the requirements file, pinned versions, then
// the tools later stages invoke.
func (o *Orchestrator) installSteps() [][]string {
	v := o.cfg.Venv
	steps := [][]string{{"-U", "pip"}}
	for _, pkg := range v.GitPackages {
		steps = append(steps, []string{pkg})
	}
	if v.Requirements != "" {
		if _, err := os.Stat(o.projectPath(v.Requirements)); err == nil {
			steps = append(steps, []string{"-r", v.Requirements})
		} else {
			warnf("provision: %s not found, skipping", v.Requirements)
		}
	}
	if len(v.Pinned) > 0 {
		steps = append(steps, v.Pinned)
	}
	if len(v.Tooling) > 0 {
		steps = append(steps, v.Tooling)
	}
	return steps
}

// pipInstall runs "python -m pip install args..." inside env and records
// the specs on success.
func (o *Orchestrator) pipInstall(ctx context.Context, env *Environment, args ...string) error {
	cmd := env.module(o.cfg.Project.Root, modPip, append([]string{"install"}, args...)...)
	logf("provision: pip install %v", args)
	res, err := o.runner.Run(ctx, cmd)
	if err != nil {
		return stageErr(StageProvision, 0, fmt.Errorf("%w: pip install %v: %v", ErrInstallFailed, args, err))
	}
	if !res.Success() {
		return stageErr(StageProvision, res.ExitCode, fmt.Errorf("%w: pip install %v", ErrInstallFailed, args))
	}
	env.Packages = append(env.Packages, args...)
	return nil
}

// projectPath resolves rel against the project root.
func (o *Orchestrator) projectPath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(o.cfg.Project.Root, rel)
}
