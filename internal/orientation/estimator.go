// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

// State is the orientation estimate carried across samples. Roll and pitch
// track physical tilt; yaw is pure gyro integration and drifts without bound.
type State struct {
	Roll           float64
	Pitch          float64
	Yaw            float64
	LastSampleTime time.Time
}

// Pose returns the angles of the state.
func (s State) Pose() Pose {
	return Pose{Roll: s.Roll, Pitch: s.Pitch, Yaw: s.Yaw}
}

// Update runs one complementary filter step and returns the new state.
//
// The first sample of a session (zero LastSampleTime) has no reference time
// and integrates nothing. Negative, NaN or infinite intervals also count as
// zero so a clock jump can never poison the state.
func Update(s State, p Params, raw imu.Raw, now time.Time) State {
	ax := raw.Ax / p.AccelScale
	ay := raw.Ay / p.AccelScale
	az := raw.Az / p.AccelScale

	gx := (raw.Gx - p.GyroBias[0]) / p.GyroScale
	gy := (raw.Gy - p.GyroBias[1]) / p.GyroScale
	gz := (raw.Gz - p.GyroBias[2]) / p.GyroScale

	accelRoll, accelPitch := AccelTilt(ax, ay, az)

	dt := 0.0
	if !s.LastSampleTime.IsZero() {
		dt = sanitizeDT(now.Sub(s.LastSampleTime).Seconds())
	}
	s.LastSampleTime = now

	s.Roll = Complementary(s.Roll, gx, accelRoll, dt, p.Alpha)
	s.Pitch = Complementary(s.Pitch, gy, accelPitch, dt, p.Alpha)
	s.Yaw += gz * dt

	return s
}

func sanitizeDT(dt float64) float64 {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return 0
	}
	return dt
}

// Estimator owns the orientation state of one monitoring session.
// It is not safe for concurrent use.
type Estimator struct {
	params Params
	state  State
}

// NewEstimator returns an estimator with a zeroed state.
func NewEstimator(p Params) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{params: p}, nil
}

// Ingest folds one sample into the state and returns it.
func (e *Estimator) Ingest(raw imu.Raw, now time.Time) State {
	e.state = Update(e.state, e.params, raw, now)
	return e.state
}

// IngestLine parses a "ax,ay,az,gx,gy,gz" line and ingests it. A malformed
// line leaves the state untouched and returns an error wrapping
// imu.ErrMalformedLine; logging it is up to the caller.
func (e *Estimator) IngestLine(line string, now time.Time) (State, error) {
	raw, err := imu.ParseLine(line)
	if err != nil {
		return e.state, err
	}
	return e.Ingest(raw, now), nil
}

// State returns the current estimate.
func (e *Estimator) State() State {
	return e.state
}

// Params returns the filter parameters.
func (e *Estimator) Params() Params {
	return e.params
}

// Reset zeroes the state, as at the start of a session.
func (e *Estimator) Reset() {
	e.state = State{}
}
