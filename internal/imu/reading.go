// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Reading is one stored device record as served by the sensor API. Field
// names follow the records the ESP32 firmware writes.
type Reading struct {
	DeviceID  string      `json:"DeviceId"`
	Timestamp int64       `json:"Timestamp"` // unix milliseconds
	Data      ReadingData `json:"Data"`
}

// ReadingData carries raw IMU counts plus the environment channels.
type ReadingData struct {
	AccelX float64 `json:"AccelX"`
	AccelY float64 `json:"AccelY"`
	AccelZ float64 `json:"AccelZ"`
	GyroX  float64 `json:"GyroX"`
	GyroY  float64 `json:"GyroY"`
	GyroZ  float64 `json:"GyroZ"`

	Temperature float64 `json:"Temperatura"` // °C
	Humidity    float64 `json:"Humedad"`     // %RH
	Salinity    float64 `json:"salinidad"`
}

// Raw extracts the IMU channels of the reading.
func (r Reading) Raw() Raw {
	return Raw{
		Ax: r.Data.AccelX, Ay: r.Data.AccelY, Az: r.Data.AccelZ,
		Gx: r.Data.GyroX, Gy: r.Data.GyroY, Gz: r.Data.GyroZ,
	}
}
