// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/imu"
	"github.com/relabs-tech/imu_monitor/internal/orientation"
	"github.com/relabs-tech/imu_monitor/internal/sensors"
)

// CalibrationResult is the JSON record of a gyro calibration run.
type CalibrationResult struct {
	Version   int       `json:"version"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Duration  string    `json:"duration"`
	Accepted  bool      `json:"accepted"`

	// RestingPose is the tilt of the sensor during the run, from the mean
	// accelerometer reading.
	RestingPose orientation.Pose `json:"resting_pose"`

	orientation.GyroBiasEstimate
}

// CalibrationOptions controls RunCalibration.
type CalibrationOptions struct {
	Duration  time.Duration // how long the sensor must stay still
	ResultDir string        // where the JSON record goes; empty skips it
	Out       io.Writer     // receives the suggested config lines
}

// RunCalibration samples the configured source while the sensor sits still
// and prints the GYRO_BIAS_* lines to add to the config file. A run where the
// sensor moved returns orientation.ErrNotStill and its lines are printed
// commented out.
func RunCalibration(ctx context.Context, cfg *config.Config, opts CalibrationOptions) (CalibrationResult, error) {
	src, err := sensors.NewSource(cfg)
	if err != nil {
		return CalibrationResult{}, fmt.Errorf("open %s source: %w", cfg.Source, err)
	}
	defer src.Close()

	return calibrate(ctx, src, cfg, opts)
}

func calibrate(ctx context.Context, src imu.Source, cfg *config.Config, opts CalibrationOptions) (CalibrationResult, error) {
	params, err := cfg.FilterParams()
	if err != nil {
		return CalibrationResult{}, fmt.Errorf("filter config: %w", err)
	}

	log.Printf("calibration: keep the sensor still for %s", opts.Duration)
	samples, err := collectSamples(ctx, src, opts.Duration, cfg.UpdateInterval())
	if err != nil {
		return CalibrationResult{}, err
	}

	est, err := orientation.EstimateGyroBias(samples)
	if err != nil {
		return CalibrationResult{}, err
	}
	applied, applyErr := est.Apply(params)

	res := CalibrationResult{
		Version:          1,
		Source:           cfg.Source,
		Timestamp:        time.Now(),
		Duration:         opts.Duration.String(),
		Accepted:         applyErr == nil,
		RestingPose:      restingPose(samples),
		GyroBiasEstimate: est,
	}

	if err := writeBiasLines(opts.Out, res); err != nil {
		return res, err
	}
	if opts.ResultDir != "" {
		name, err := writeResult(opts.ResultDir, res)
		if err != nil {
			return res, err
		}
		log.Printf("calibration: wrote %s", name)
	}

	if applyErr != nil {
		return res, applyErr
	}
	log.Printf("calibration: gyro bias %.3f %.3f %.3f counts",
		applied.GyroBias[0], applied.GyroBias[1], applied.GyroBias[2])
	return res, nil
}

// restingPose is the accelerometer tilt of the mean sample.
func restingPose(samples []imu.Raw) orientation.Pose {
	var ax, ay, az float64
	for _, s := range samples {
		ax += s.Ax
		ay += s.Ay
		az += s.Az
	}
	n := float64(len(samples))
	return orientation.ComputePoseFromAccel(ax/n, ay/n, az/n)
}

// collectSamples polls src every interval for dur. Stale and malformed
// samples are skipped; an unavailable source aborts the run.
func collectSamples(ctx context.Context, src imu.Source, dur, interval time.Duration) ([]imu.Raw, error) {
	ctx, cancel := context.WithTimeout(ctx, dur)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var samples []imu.Raw
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return samples, nil
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}

		raw, err := src.Next(ctx)
		switch {
		case err == nil:
			samples = append(samples, raw)
		case errors.Is(err, imu.ErrStale), errors.Is(err, imu.ErrMalformedLine):
		case errors.Is(err, imu.ErrSourceUnavailable):
			return nil, fmt.Errorf("calibration aborted: %w", err)
		case ctx.Err() != nil:
			// deadline reached mid-read; handled at the top of the loop
		default:
			return nil, err
		}
	}
}

func writeBiasLines(w io.Writer, res CalibrationResult) error {
	est := res.GyroBiasEstimate
	prefix := ""
	if !res.Accepted {
		prefix = "#"
		if _, err := fmt.Fprintf(w,
			"# REJECTED: the sensor moved (confidence %.2f), keep it still and run again\n",
			est.Confidence,
		); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w,
		"# gyro bias from %d samples, stddev %.2f %.2f %.2f counts, confidence %.2f\n"+
			"# resting tilt roll %.2f pitch %.2f degrees\n"+
			"%sGYRO_BIAS_X=%.3f\n%sGYRO_BIAS_Y=%.3f\n%sGYRO_BIAS_Z=%.3f\n",
		est.Samples, est.StdDev[0], est.StdDev[1], est.StdDev[2], est.Confidence,
		res.RestingPose.Roll, res.RestingPose.Pitch,
		prefix, est.Bias[0], prefix, est.Bias[1], prefix, est.Bias[2],
	)
	return err
}

func writeResult(dir string, res CalibrationResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := res.Timestamp.Format("2006-01-02T15-04-05Z07-00")
	name := filepath.Join(dir, fmt.Sprintf("%s_%s_gyro_calibration.json", res.Source, ts))

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return "", err
	}
	return name, nil
}
