// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"errors"
	"image"
	"time"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/imu_monitor/internal/geometry"
	"github.com/relabs-tech/imu_monitor/internal/orientation"
)

// Frame is what the monitor hands to displays once per tick.
type Frame struct {
	Time     time.Time
	Pose     orientation.Pose
	Vertices []r3.Vector // rotated cube, same order as geometry.CubeVertices
}

// Sink renders frames. Show is called from a single goroutine.
type Sink interface {
	Show(f Frame) error
	Close() error
}

// Multi fans frames out to several sinks.
type Multi []Sink

// Show passes f to every sink and joins their errors.
func (m Multi) Show(f Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Show(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, in reverse order.
func (m Multi) Close() error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wireframe projects the cube edges into bounds. The cube is scaled so a
// unit of half size fills a third of the smaller side.
func Wireframe(verts []r3.Vector, bounds image.Rectangle, half float64) [][2]image.Point {
	if len(verts) != 8 {
		return nil
	}
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	scale := float64(side) / 3 / half

	segs := make([][2]image.Point, 0, len(geometry.CubeEdges))
	for _, e := range geometry.CubeEdges {
		segs = append(segs, [2]image.Point{
			geometry.Project(verts[e[0]], bounds, scale),
			geometry.Project(verts[e[1]], bounds, scale),
		})
	}
	return segs
}
