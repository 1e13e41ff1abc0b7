// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Pose is the canonical representation of orientation for the app, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

const radToDeg = 180.0 / math.Pi

// AccelTilt computes roll and pitch in degrees from the gravity direction.
// Units of ax, ay, az do not matter, only their ratios.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func AccelTilt(ax, ay, az float64) (roll, pitch float64) {
	roll = math.Atan2(ay, az) * radToDeg
	pitch = math.Atan2(-ax, math.Sqrt(ay*ay+az*az)) * radToDeg
	return roll, pitch
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is 0 since gravity carries no heading information.
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	roll, pitch := AccelTilt(ax, ay, az)
	return Pose{Roll: roll, Pitch: pitch}
}

// Complementary blends an integrated gyro angle with an accelerometer angle:
//
//	alpha*(prev + rate*dt) + (1-alpha)*accelAngle
func Complementary(prev, rate, accelAngle, dt, alpha float64) float64 {
	return alpha*(prev+rate*dt) + (1-alpha)*accelAngle
}
