// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/imu_monitor/internal/app"
	"github.com/relabs-tech/imu_monitor/internal/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "web",
	Short: "serves a browser view of the cube, fed by the monitor over MQTT",
	Run: func(c *cobra.Command, args []string) {
		log.Println("starting imu web viewer (MQTT subscriber)")

		cfg, err := cmd.Setup(c)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if err := cfg.ValidateSubscriber(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}

		ctx, stop := cmd.SignalContext()
		defer stop()

		log.Println("note: start the monitor with DISPLAYS including mqtt to feed the viewer")
		if err := app.RunWeb(ctx, cfg); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	},
}

func main() {
	cmd.CommonFlags(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
