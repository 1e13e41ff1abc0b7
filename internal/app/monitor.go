// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/display"
	"github.com/relabs-tech/imu_monitor/internal/geometry"
	"github.com/relabs-tech/imu_monitor/internal/imu"
	"github.com/relabs-tech/imu_monitor/internal/orientation"
	"github.com/relabs-tech/imu_monitor/internal/sensors"
)

// Monitor pipes samples from a source through the estimator and shows the
// rotated cube on a display once per tick.
type Monitor struct {
	source imu.Source
	sink   display.Sink
	est    *orientation.Estimator
	cube   []r3.Vector
	log    *log.Entry
	now    func() time.Time

	outage bool
}

func NewMonitor(src imu.Source, sink display.Sink, est *orientation.Estimator, half float64) *Monitor {
	return &Monitor{
		source: src,
		sink:   sink,
		est:    est,
		cube:   geometry.CubeVertices(half),
		log:    log.WithField("session", uuid.NewString()),
		now:    time.Now,
	}
}

// Step runs one tick: it pulls at most one sample, folds it into the
// estimate and shows the current pose. It reports whether a new sample was
// ingested. Source errors never end the session.
func (m *Monitor) Step(ctx context.Context) (display.Frame, bool) {
	raw, err := m.source.Next(ctx)
	ingested := false

	switch {
	case err == nil:
		if m.outage {
			// the gap would otherwise be integrated as one long step
			m.log.Info("sample source recovered, restarting the estimate")
			m.est.Reset()
			m.outage = false
		}
		if m.log.Logger.IsLevelEnabled(log.DebugLevel) {
			m.log.WithField("raw", raw.String()).Debug("sample")
		}
		m.est.Ingest(raw, m.now())
		ingested = true

	case errors.Is(err, imu.ErrStale):
		// nothing new; keep showing the current pose

	case errors.Is(err, imu.ErrMalformedLine):
		m.log.Debugf("dropping sample: %v", err)

	case errors.Is(err, imu.ErrSourceUnavailable):
		if !m.outage {
			m.log.Warnf("sample source unavailable, retrying: %v", err)
			m.outage = true
		} else {
			m.log.Debugf("sample source still unavailable: %v", err)
		}

	case ctx.Err() != nil:
		return display.Frame{}, false

	default:
		m.log.Warnf("sample source error: %v", err)
	}

	pose := m.est.State().Pose()
	frame := display.Frame{
		Time:     m.now(),
		Pose:     pose,
		Vertices: geometry.Rotate(pose.Roll, pose.Pitch, pose.Yaw, m.cube),
	}
	if err := m.sink.Show(frame); err != nil {
		m.log.Warnf("display error: %v", err)
	}
	return frame, ingested
}

// Run ticks every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Printf("monitor loop started (every %s)", interval)
	for {
		select {
		case <-ctx.Done():
			m.log.Println("monitor loop stopped")
			return nil
		case <-ticker.C:
			m.Step(ctx)
		}
	}
}

// RunMonitor builds the session described by cfg and runs it until ctx is
// cancelled or an interactive display quits. Source and displays are
// released on return.
func RunMonitor(ctx context.Context, cfg *config.Config) error {
	params, err := cfg.FilterParams()
	if err != nil {
		return fmt.Errorf("filter config: %w", err)
	}
	est, err := orientation.NewEstimator(params)
	if err != nil {
		return err
	}

	src, err := sensors.NewSource(cfg)
	if err != nil {
		return fmt.Errorf("open %s source: %w", cfg.Source, err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sinks, err := display.Open(cfg, cancel)
	if err != nil {
		return err
	}
	defer sinks.Close()

	log.WithFields(log.Fields{
		"source":   cfg.Source,
		"displays": cfg.Displays,
		"alpha":    est.Params().Alpha,
	}).Info("starting orientation monitor")

	return NewMonitor(src, sinks, est, cfg.CubeHalfSize).Run(ctx, cfg.UpdateInterval())
}
