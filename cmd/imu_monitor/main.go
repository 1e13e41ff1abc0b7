// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/imu_monitor/internal/app"
	"github.com/relabs-tech/imu_monitor/internal/cmd"
	"github.com/relabs-tech/imu_monitor/internal/sensors"
)

var rootCmd = &cobra.Command{
	Use:   "imu_monitor",
	Short: "live orientation monitor for a 6-axis IMU",
	Long: `imu_monitor reads accelerometer and gyroscope samples from a serial line,
an SPI-attached MPU9250, an HTTP sensor API or a built-in simulator, fuses them
with a complementary filter and renders the orientation of a cube.`,
}

func sourceFlags(c *cobra.Command) {
	c.Flags().String("source", "", "sample source: serial, spi, http or mock")
	c.Flags().String("port", "", "serial port, e.g. /dev/ttyUSB0 or COM3")
}

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "run the monitor until interrupted",
	Example: "  imu_monitor run --source mock --displays console,tui",
	Run: func(c *cobra.Command, args []string) {
		cfg, err := cmd.Setup(c)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if err := cfg.ValidateMonitor(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}

		ctx, stop := cmd.SignalContext()
		defer stop()

		log.Printf("starting imu monitor (source=%s displays=%v)", cfg.Source, cfg.Displays)
		if err := app.RunMonitor(ctx, cfg); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "estimate the gyroscope bias while the sensor sits still",
	Long: `calibrate samples the configured source for --duration while the sensor is
kept still and prints the GYRO_BIAS_X/Y/Z lines to add to the config file.
A JSON record of the run is written to --output.`,
	Run: func(c *cobra.Command, args []string) {
		cfg, err := cmd.Setup(c)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if err := cfg.ValidateMonitor(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
		dur, _ := c.Flags().GetDuration("duration")
		dir, _ := c.Flags().GetString("output")

		ctx, stop := cmd.SignalContext()
		defer stop()

		if _, err := app.RunCalibration(ctx, cfg, app.CalibrationOptions{
			Duration:  dur,
			ResultDir: dir,
			Out:       os.Stdout,
		}); err != nil {
			log.Fatalf("calibration failed: %v", err)
		}
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "list the serial ports of this host",
	Run: func(c *cobra.Command, args []string) {
		if _, err := cmd.Setup(c); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		ports, err := sensors.ListPorts()
		if err != nil {
			log.Fatalf("%v", err)
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
			return
		}
		for _, p := range ports {
			if p.IsUSB {
				fmt.Printf("%-16s USB %s:%s %s %s\n", p.Name, p.VID, p.PID, p.Serial, p.Product)
			} else {
				fmt.Println(p.Name)
			}
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect the configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "print the effective configuration as YAML",
	Run: func(c *cobra.Command, args []string) {
		cfg, err := cmd.Setup(c)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if err := cfg.WriteYAML(os.Stdout); err != nil {
			log.Fatalf("%v", err)
		}
	},
}

func main() {
	cmd.CommonFlags(rootCmd)

	sourceFlags(runCmd)
	runCmd.Flags().String("displays", "", "comma separated displays: console, tui, oled, mqtt")
	rootCmd.AddCommand(runCmd)

	sourceFlags(calibrateCmd)
	calibrateCmd.Flags().Duration("duration", 10*time.Second, "how long to sample")
	calibrateCmd.Flags().StringP("output", "o", "calibration", "directory for the JSON record, empty to skip")
	rootCmd.AddCommand(calibrateCmd)

	rootCmd.AddCommand(portsCmd)

	configCmd.AddCommand(configPrintCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
