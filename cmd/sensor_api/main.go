// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/imu_monitor/internal/app"
	"github.com/relabs-tech/imu_monitor/internal/cmd"
)

func _main(c *cobra.Command) error {
	cfg, err := cmd.Setup(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := cmd.SignalContext()
	defer stop()

	log.Printf("starting sensor api (db=%s bucket=%s)", cfg.APIDBPath, cfg.APIBucketDir)
	return app.RunSensorAPI(ctx, cfg)
}

var rootCmd = &cobra.Command{
	Use:   "sensor_api",
	Short: "serves device readings and captured images",
	Long: `sensor_api serves the newest readings of a device from a SQLite store and
accepts base64 image captures, answering with a time-limited signed URL.`,
	Run: func(c *cobra.Command, args []string) {
		if err := _main(c); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func main() {
	cmd.CommonFlags(rootCmd)
	rootCmd.Flags().String("listen", "", "listen address, e.g. :8090")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
