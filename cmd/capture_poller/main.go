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
	Use:   "capture_poller",
	Short: "forwards JPEG frames from an ESP32 camera to the sensor API",
	Long: `capture_poller fetches one JPEG frame from CAMERA_URL every CAPTURE_INTERVAL_MS,
optionally stamps the frame rate on it and posts it to the sensor API capture
endpoint at CAPTURE_API_URL.`,
	Run: func(c *cobra.Command, args []string) {
		log.Println("starting camera capture poller")

		cfg, err := cmd.Setup(c)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if err := cfg.ValidateCapture(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}

		ctx, stop := cmd.SignalContext()
		defer stop()

		if err := app.RunCapturePoller(ctx, cfg); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	},
}

func main() {
	cmd.CommonFlags(rootCmd)
	rootCmd.Flags().String("camera", "", "camera frame URL, e.g. http://192.168.64.74/capture")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
