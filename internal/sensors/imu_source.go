// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

// spiSource reads raw counts from an MPU9250/6500 family IMU over SPI.
type spiSource struct {
	name string
	imu  *mpu9250.MPU9250
}

// NewSPISource initializes the MPU9250 on spiDev with chip select csPin.
// Self-test and calibration failures are logged and tolerated.
func NewSPISource(spiDev, csPin string) (imu.Source, error) {
	name := spiDev
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU %s: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU %s: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU %s: SPI transport: %w", name, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU %s: device creation: %w", name, err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU %s: initialization: %w", name, err)
	}

	if res, err := dev.SelfTest(); err != nil {
		log.Warnf("IMU %s: self-test failed: %v", name, err)
	} else {
		log.Debugf("IMU %s: self-test result: %+v", name, res)
	}

	if err := dev.Calibrate(); err != nil {
		log.Warnf("IMU %s: calibration failed: %v", name, err)
	} else {
		log.Printf("IMU %s: calibration complete", name)
	}

	return &spiSource{name: name, imu: dev}, nil
}

// Next reads one accelerometer and gyroscope sample.
func (s *spiSource) Next(ctx context.Context) (imu.Raw, error) {
	if err := ctx.Err(); err != nil {
		return imu.Raw{}, err
	}

	reads := []struct {
		axis string
		get  func() (int16, error)
	}{
		{"accel X", s.imu.GetAccelerationX},
		{"accel Y", s.imu.GetAccelerationY},
		{"accel Z", s.imu.GetAccelerationZ},
		{"gyro X", s.imu.GetRotationX},
		{"gyro Y", s.imu.GetRotationY},
		{"gyro Z", s.imu.GetRotationZ},
	}

	var v [6]float64
	for i, r := range reads {
		n, err := r.get()
		if err != nil {
			return imu.Raw{}, fmt.Errorf("IMU %s %s: %v: %w", s.name, r.axis, err, imu.ErrSourceUnavailable)
		}
		v[i] = float64(n)
	}

	return imu.Raw{Ax: v[0], Ay: v[1], Az: v[2], Gx: v[3], Gy: v[4], Gz: v[5]}, nil
}

// Close is a no-op; the periph SPI port stays open for the process lifetime.
func (s *spiSource) Close() error { return nil }
