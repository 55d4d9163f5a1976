// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command pyci runs the local CI pipeline for a Python project.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/pyci/pkg/orchestrator"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pyci",
	Short: "Run the local CI pipeline for a Python project",
	Long: `pyci runs the pipeline stages in order and stops at the first failure:

  1. preflight   check the interpreter version
  2. provision   create the virtualenv and install dependencies (NOVENV=1 skips)
  3. analyze     radon complexity and maintainability (advisory)
  4. test        pytest with coverage, failing under the threshold
  5. report      upload the coverage report

The exit status is that of the first failing step.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		orchestrator.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"pipeline configuration file (default "+orchestrator.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(initCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pyci:", err)
	}
	stop()
	os.Exit(orchestrator.ExitCode(err))
}

// loadConfig resolves the configuration: the --config file, else
// pipeline.yaml when present, else defaults; then environment overrides.
func loadConfig() (orchestrator.Config, error) {
	var (
		cfg orchestrator.Config
		err error
	)
	path := configPath
	if path == "" {
		if _, statErr := os.Stat(orchestrator.DefaultConfigFile); statErr == nil {
			path = orchestrator.DefaultConfigFile
		}
	}
	if path != "" {
		cfg, err = orchestrator.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = orchestrator.DefaultConfig()
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var opts []orchestrator.Option
	if !cfg.History.Disabled {
		history, err := orchestrator.OpenHistory(cfg.History.Path)
		if err != nil {
			logger.Warn("run history unavailable", zap.Error(err))
		} else {
			defer history.Close()
			opts = append(opts, orchestrator.WithHistory(history))
		}
	}

	o := orchestrator.New(cfg, opts...)
	rec, err := o.Run(cmd.Context())
	logger.Debug("run finished", zap.String("id", rec.ID), zap.Int("exit_code", rec.ExitCode))
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted: %w", err)
	}
	return err
}
