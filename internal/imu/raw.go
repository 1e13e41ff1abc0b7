// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMalformedLine marks a sample line that does not have exactly six
	// finite numeric fields. The sample is dropped; it is never fatal.
	ErrMalformedLine = errors.New("malformed sample line")

	// ErrStale is returned by sources that have nothing newer than the last
	// sample they produced.
	ErrStale = errors.New("no new sample")

	// ErrSourceUnavailable marks an upstream failure (port unplugged, API
	// down). Callers keep running and retry on the next tick.
	ErrSourceUnavailable = errors.New("sample source unavailable")
)

// Raw is a single 6-axis sample in raw sensor counts.
type Raw struct {
	Ax float64 `json:"ax"` // accel
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // gyro
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
}

// Source yields raw samples. Next returns ErrStale when nothing newer than
// the previous sample is available and ErrSourceUnavailable on upstream
// failures; it must honour ctx when it blocks.
type Source interface {
	Next(ctx context.Context) (Raw, error)
	Close() error
}

// ParseLine parses the "ax,ay,az,gx,gy,gz" line protocol.
func ParseLine(line string) (Raw, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 6 {
		return Raw{}, fmt.Errorf("%w: want 6 fields, got %d", ErrMalformedLine, len(fields))
	}

	var vals [6]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Raw{}, fmt.Errorf("%w: field %d %q not numeric", ErrMalformedLine, i, f)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Raw{}, fmt.Errorf("%w: field %d %q not finite", ErrMalformedLine, i, f)
		}
		vals[i] = v
	}

	return Raw{
		Ax: vals[0], Ay: vals[1], Az: vals[2],
		Gx: vals[3], Gy: vals[4], Gz: vals[5],
	}, nil
}

// String formats the sample back into the line protocol.
func (r Raw) String() string {
	return fmt.Sprintf("%g,%g,%g,%g,%g,%g", r.Ax, r.Ay, r.Az, r.Gx, r.Gy, r.Gz)
}
