// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/imu"
	"github.com/relabs-tech/imu_monitor/internal/orientation"
)

// NewSource builds the acquisition source selected by cfg.Source.
func NewSource(cfg *config.Config) (imu.Source, error) {
	switch cfg.Source {
	case config.SourceSerial:
		open, err := OpenerFor(cfg.SerialDriver)
		if err != nil {
			return nil, err
		}
		return NewSerialSource(SerialOptions{
			Port:          cfg.SerialPort,
			BaudRate:      cfg.SerialBaudRate,
			Backlog:       cfg.SerialBacklogLines,
			RetryInterval: time.Duration(cfg.SerialRetryInterval) * time.Millisecond,
			Open:          open,
		}), nil

	case config.SourceSPI:
		return NewSPISource(cfg.IMUSPIDevice, cfg.IMUCSPin)

	case config.SourceHTTP:
		return NewHTTPSource(cfg.HTTPSourceURL, time.Duration(cfg.HTTPSourceTimeout)*time.Millisecond), nil

	case config.SourceMock:
		p, err := cfg.FilterParams()
		if err != nil {
			return nil, err
		}
		return orientation.NewMockSource(p), nil

	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
