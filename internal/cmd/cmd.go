// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package cmd holds the flag and startup plumbing shared by the binaries.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/logging"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "imu_config.txt"

// CommonFlags registers the flags every binary accepts.
func CommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", DefaultConfigPath, "path to the KEY=VALUE configuration file")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}

// Setup loads the configuration named by --config, overlays the
// environment and changed flags, and configures logging from the result.
// A missing default config file is not an error.
func Setup(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == DefaultConfigPath && !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	if path == "" {
		log.Debugf("no config file, using defaults and environment")
	} else {
		log.Debugf("loaded config from %s", path)
	}
	return cfg, nil
}

// SignalContext is canceled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
