// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

// Stillness thresholds on the average gyro standard deviation, in raw counts.
const (
	stillStdGood = 3.0
	stillStdBad  = 12.0
	confFloor    = 0.05
)

// MinBiasSamples is the fewest samples EstimateGyroBias accepts.
const MinBiasSamples = 10

// GyroBiasEstimate is the result of a static gyro calibration.
type GyroBiasEstimate struct {
	Bias       [3]float64 `json:"bias"`   // mean raw counts x, y, z
	StdDev     [3]float64 `json:"stddev"` // raw counts
	Samples    int        `json:"samples"`
	Confidence float64    `json:"confidence"` // 1 when the sensor was still
}

// EstimateGyroBias averages gyro counts captured while the sensor sits still.
func EstimateGyroBias(samples []imu.Raw) (GyroBiasEstimate, error) {
	if len(samples) < MinBiasSamples {
		return GyroBiasEstimate{}, fmt.Errorf("need at least %d samples, got %d", MinBiasSamples, len(samples))
	}

	axes := [3][]float64{
		make([]float64, len(samples)),
		make([]float64, len(samples)),
		make([]float64, len(samples)),
	}
	for i, s := range samples {
		axes[0][i] = s.Gx
		axes[1][i] = s.Gy
		axes[2][i] = s.Gz
	}

	est := GyroBiasEstimate{Samples: len(samples)}
	for i := range axes {
		est.Bias[i], est.StdDev[i] = stat.MeanStdDev(axes[i], nil)
	}
	est.Confidence = stillnessConfidence(est.StdDev)

	return est, nil
}

// ErrNotStill is returned by Apply when the estimate is too noisy to trust.
var ErrNotStill = errors.New("sensor moved during gyro calibration")

// Apply copies the bias into p if the estimate is trustworthy.
func (g GyroBiasEstimate) Apply(p Params) (Params, error) {
	if g.Confidence <= confFloor {
		return p, ErrNotStill
	}
	p.GyroBias = g.Bias
	return p, nil
}

func stillnessConfidence(std [3]float64) float64 {
	s := (std[0] + std[1] + std[2]) / 3
	switch {
	case s <= stillStdGood:
		return 1.0
	case s >= stillStdBad:
		return confFloor
	default:
		t := (s - stillStdGood) / (stillStdBad - stillStdGood)
		return 1.0 - 0.95*t
	}
}
