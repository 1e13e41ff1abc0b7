// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"math"
	"time"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

type mockSource struct {
	start time.Time
	p     Params
	now   func() time.Time
}

// NewMockSource creates a mock raw sample source that rocks the sensor
// smoothly in roll and pitch while turning at a constant yaw rate. Counts
// are generated with the given calibration so the estimator recovers the
// motion.
func NewMockSource(p Params) imu.Source {
	return &mockSource{start: time.Now(), p: p, now: time.Now}
}

func (m *mockSource) Next(ctx context.Context) (imu.Raw, error) {
	if err := ctx.Err(); err != nil {
		return imu.Raw{}, err
	}
	return m.sample(m.now().Sub(m.start).Seconds()), nil
}

func (m *mockSource) sample(elapsed float64) imu.Raw {
	const deg = math.Pi / 180

	roll := 20 * math.Sin(elapsed)
	pitch := 15 * math.Cos(elapsed*0.7)

	// d/dt of the angles above, in °/s
	rollRate := 20 * math.Cos(elapsed)
	pitchRate := -15 * 0.7 * math.Sin(elapsed*0.7)
	yawRate := 30.0

	// gravity seen by a sensor at (roll, pitch), in g
	ax := -math.Sin(pitch * deg)
	ay := math.Cos(pitch*deg) * math.Sin(roll*deg)
	az := math.Cos(pitch*deg) * math.Cos(roll*deg)

	return imu.Raw{
		Ax: ax * m.p.AccelScale,
		Ay: ay * m.p.AccelScale,
		Az: az * m.p.AccelScale,
		Gx: rollRate*m.p.GyroScale + m.p.GyroBias[0],
		Gy: pitchRate*m.p.GyroScale + m.p.GyroBias[1],
		Gz: yawRate*m.p.GyroScale + m.p.GyroBias[2],
	}
}

func (m *mockSource) Close() error { return nil }
