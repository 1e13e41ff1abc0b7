// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"os"

	"github.com/relabs-tech/imu_monitor/internal/config"
)

// Open builds the sinks named in cfg.Displays. onQuit is invoked when an
// interactive display asks to end the session. On error, sinks opened so
// far are closed.
func Open(cfg *config.Config, onQuit func()) (Multi, error) {
	var sinks Multi
	for _, name := range cfg.Displays {
		s, err := open(cfg, name, onQuit)
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("display %s: %w", name, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func open(cfg *config.Config, name string, onQuit func()) (Sink, error) {
	switch name {
	case "console":
		return NewConsole(os.Stdout), nil
	case "tui":
		return NewTUI(cfg.CubeHalfSize, onQuit)
	case "oled":
		return NewOLED(cfg.DisplayI2CBus, cfg.CubeHalfSize)
	case "mqtt":
		return DialMQTT(cfg.MQTTBroker, cfg.MQTTClientIDMonitor, cfg.TopicPose)
	default:
		return nil, fmt.Errorf("unknown display")
	}
}
