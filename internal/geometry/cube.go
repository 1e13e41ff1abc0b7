// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geometry rotates the reference cube by an orientation estimate.
package geometry

import (
	"image"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// CubeEdges lists vertex index pairs for a wireframe of CubeVertices.
var CubeEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0}, // bottom (z = -h)
	{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top (z = +h)
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // verticals
}

// CubeFaces lists the vertex indices of each face of CubeVertices.
var CubeFaces = [6][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{2, 3, 7, 6},
	{1, 2, 6, 5},
	{0, 3, 7, 4},
}

// CubeVertices returns the eight vertices of an axis-aligned cube centred on
// the origin with the given half edge length.
func CubeVertices(half float64) []r3.Vector {
	h := half
	return []r3.Vector{
		{X: -h, Y: -h, Z: -h},
		{X: h, Y: -h, Z: -h},
		{X: h, Y: h, Z: -h},
		{X: -h, Y: h, Z: -h},
		{X: -h, Y: -h, Z: h},
		{X: h, Y: -h, Z: h},
		{X: h, Y: h, Z: h},
		{X: -h, Y: h, Z: h},
	}
}

// RotationMatrix composes R = Rz(yaw) · Ry(pitch) · Rx(roll). Angles are in
// degrees. The order is fixed; any other order draws a different cube.
func RotationMatrix(roll, pitch, yaw float64) *mat.Dense {
	r := roll * math.Pi / 180
	p := pitch * math.Pi / 180
	y := yaw * math.Pi / 180

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, math.Cos(r), -math.Sin(r),
		0, math.Sin(r), math.Cos(r),
	})
	ry := mat.NewDense(3, 3, []float64{
		math.Cos(p), 0, math.Sin(p),
		0, 1, 0,
		-math.Sin(p), 0, math.Cos(p),
	})
	rz := mat.NewDense(3, 3, []float64{
		math.Cos(y), -math.Sin(y), 0,
		math.Sin(y), math.Cos(y), 0,
		0, 0, 1,
	})

	var rzy, out mat.Dense
	rzy.Mul(rz, ry)
	out.Mul(&rzy, rx)
	return &out
}

// Rotate applies RotationMatrix(roll, pitch, yaw) to every vertex and
// returns the rotated copies. verts is not modified.
func Rotate(roll, pitch, yaw float64, verts []r3.Vector) []r3.Vector {
	if len(verts) == 0 {
		return nil
	}

	v := mat.NewDense(len(verts), 3, nil)
	for i, p := range verts {
		v.SetRow(i, []float64{p.X, p.Y, p.Z})
	}

	// Row vectors: V' = V · Rᵀ
	var rotated mat.Dense
	rotated.Mul(v, RotationMatrix(roll, pitch, yaw).T())

	out := make([]r3.Vector, len(verts))
	for i := range out {
		out[i] = r3.Vector{X: rotated.At(i, 0), Y: rotated.At(i, 1), Z: rotated.At(i, 2)}
	}
	return out
}

// Project maps a vertex orthographically onto the x/y plane of bounds,
// scale pixels per unit, with +y pointing up on screen.
func Project(v r3.Vector, bounds image.Rectangle, scale float64) image.Point {
	cx := float64(bounds.Min.X+bounds.Max.X) / 2
	cy := float64(bounds.Min.Y+bounds.Max.Y) / 2
	return image.Point{
		X: int(math.Round(cx + v.X*scale)),
		Y: int(math.Round(cy - v.Y*scale)),
	}
}
