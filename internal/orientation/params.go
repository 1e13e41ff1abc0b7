// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
)

// DefaultAlpha trusts the integrated gyro 98% and the accelerometer tilt 2%.
const DefaultAlpha = 0.98

// Params holds the device calibration and filter weight.
type Params struct {
	// AccelScale divides raw accelerometer counts (16384 for an MPU6050 at ±2g).
	AccelScale float64
	// GyroScale divides raw gyro counts into °/s (131 for an MPU6050 at ±250°/s).
	GyroScale float64
	// Alpha is the complementary filter trust in the gyro, in [0,1].
	Alpha float64
	// GyroBias is subtracted from raw gyro counts (x, y, z) before scaling.
	GyroBias [3]float64
}

// NewParams validates and returns filter parameters with zero gyro bias.
// The scales are sensor specific and have no defaults.
func NewParams(accelScale, gyroScale, alpha float64) (Params, error) {
	p := Params{AccelScale: accelScale, GyroScale: gyroScale, Alpha: alpha}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks that the scales are positive and alpha lies in [0,1].
func (p Params) Validate() error {
	if !(p.AccelScale > 0) || math.IsInf(p.AccelScale, 0) {
		return fmt.Errorf("accel scale must be a positive finite number, got %v", p.AccelScale)
	}
	if !(p.GyroScale > 0) || math.IsInf(p.GyroScale, 0) {
		return fmt.Errorf("gyro scale must be a positive finite number, got %v", p.GyroScale)
	}
	if !(p.Alpha >= 0 && p.Alpha <= 1) {
		return fmt.Errorf("alpha must be in [0,1], got %v", p.Alpha)
	}
	for i, b := range p.GyroBias {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("gyro bias[%d] must be finite, got %v", i, b)
		}
	}
	return nil
}
