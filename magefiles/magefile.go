// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pyci/pkg/orchestrator"
)

const (
	binaryDir   = "bin"
	binaryName  = "pyci"
	mainPackage = "./cmd/pyci"
)

// Build compiles the pyci binary into bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return sh.RunV("go", "build", "-o", filepath.Join(binaryDir, binaryName), mainPackage)
}

// Lint runs golangci-lint on the module.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Test runs the Go unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Install runs go install for pyci.
func Install() error {
	return sh.RunV("go", "install", mainPackage)
}

// Clean removes the build output directory.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

// All lints, tests and builds.
func All() {
	mg.SerialDeps(Lint, Test, Build)
}

// Pipeline runs the Python CI pipeline in the directory named by
// PYCI_PROJECT (default the current directory) using its pipeline.yaml.
func Pipeline(ctx context.Context) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()
	orchestrator.SetLogger(logger)

	root := os.Getenv("PYCI_PROJECT")
	if root == "" {
		root = "."
	}
	cfg := orchestrator.DefaultConfig()
	if path := filepath.Join(root, orchestrator.DefaultConfigFile); fileExists(path) {
		if cfg, err = orchestrator.LoadConfig(path); err != nil {
			return err
		}
	}
	cfg.Project.Root = root
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}

	_, err = orchestrator.New(cfg).Run(ctx)
	if err != nil {
		return mg.Fatal(orchestrator.ExitCode(err), err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
