// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

func TestEstimateGyroBias_Still(t *testing.T) {
	t.Parallel()

	samples := make([]imu.Raw, 0, 100)
	for i := 0; i < 100; i++ {
		jitter := float64(i%3 - 1) // -1, 0, 1
		samples = append(samples, imu.Raw{Az: 16384, Gx: -20 + jitter, Gy: 15 - jitter, Gz: 42})
	}

	est, err := EstimateGyroBias(samples)
	require.NoError(t, err)
	assert.Equal(t, 100, est.Samples)
	assert.InDelta(t, -20, est.Bias[0], 0.05)
	assert.InDelta(t, 15, est.Bias[1], 0.05)
	assert.InDelta(t, 42, est.Bias[2], 1e-9)
	assert.Equal(t, 1.0, est.Confidence)

	p, err := est.Apply(Params{AccelScale: 16384, GyroScale: 131, Alpha: DefaultAlpha})
	require.NoError(t, err)
	assert.Equal(t, est.Bias, p.GyroBias)
}

func TestEstimateGyroBias_Moving(t *testing.T) {
	t.Parallel()

	samples := make([]imu.Raw, 0, 50)
	for i := 0; i < 50; i++ {
		samples = append(samples, imu.Raw{Gx: float64(i * 100)})
	}

	est, err := EstimateGyroBias(samples)
	require.NoError(t, err)
	assert.Equal(t, confFloor, est.Confidence)

	_, err = est.Apply(Params{})
	assert.True(t, errors.Is(err, ErrNotStill))
}

func TestEstimateGyroBias_TooFewSamples(t *testing.T) {
	t.Parallel()

	_, err := EstimateGyroBias(make([]imu.Raw, MinBiasSamples-1))
	assert.Error(t, err)
}
