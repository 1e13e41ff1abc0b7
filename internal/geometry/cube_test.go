// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geometry

import (
	"image"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func assertVecInDelta(t *testing.T, want, got r3.Vector, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestRotate_ZeroAnglesIsIdentity(t *testing.T) {
	t.Parallel()

	verts := CubeVertices(0.5)
	got := Rotate(0, 0, 0, verts)
	require.Len(t, got, 8)
	assert.Equal(t, verts, got)
}

func TestRotate_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	verts := CubeVertices(1)
	orig := append([]r3.Vector(nil), verts...)
	_ = Rotate(30, 40, 50, verts)
	assert.Equal(t, orig, verts)
}

func TestRotate_ElementaryAxes(t *testing.T) {
	t.Parallel()

	x := r3.Vector{X: 1}
	y := r3.Vector{Y: 1}

	assertVecInDelta(t, r3.Vector{Y: 1}, Rotate(0, 0, 90, []r3.Vector{x})[0], 1e-12)
	assertVecInDelta(t, r3.Vector{Z: -1}, Rotate(0, 90, 0, []r3.Vector{x})[0], 1e-12)
	assertVecInDelta(t, r3.Vector{Z: 1}, Rotate(90, 0, 0, []r3.Vector{y})[0], 1e-12)
}

func TestRotationMatrix_CompositionOrder(t *testing.T) {
	t.Parallel()

	const roll, pitch, yaw = 25.0, -40.0, 110.0
	got := RotationMatrix(roll, pitch, yaw)

	var zy, want mat.Dense
	zy.Mul(RotationMatrix(0, 0, yaw), RotationMatrix(0, pitch, 0))
	want.Mul(&zy, RotationMatrix(roll, 0, 0))
	assert.True(t, mat.EqualApprox(got, &want, 1e-12))

	// A different order gives a different matrix.
	var xy, other mat.Dense
	xy.Mul(RotationMatrix(roll, 0, 0), RotationMatrix(0, pitch, 0))
	other.Mul(&xy, RotationMatrix(0, 0, yaw))
	assert.False(t, mat.EqualApprox(got, &other, 1e-6))
}

func TestRotationMatrix_Orthonormal(t *testing.T) {
	t.Parallel()

	r := RotationMatrix(13, 77, -160)
	var rrt mat.Dense
	rrt.Mul(r, r.T())
	assert.True(t, mat.EqualApprox(&rrt, eye3(), 1e-12))
	assert.InDelta(t, 1, mat.Det(r), 1e-12)
}

func TestRotate_PreservesEdgeLengths(t *testing.T) {
	t.Parallel()

	verts := Rotate(33, -12, 271, CubeVertices(0.5))
	for _, e := range CubeEdges {
		assert.InDelta(t, 1.0, verts[e[0]].Sub(verts[e[1]]).Norm(), 1e-12)
	}
}

func TestCubeTables(t *testing.T) {
	t.Parallel()

	verts := CubeVertices(0.5)
	for _, e := range CubeEdges {
		assert.InDelta(t, 1.0, verts[e[0]].Sub(verts[e[1]]).Norm(), 1e-12, "edge %v", e)
	}
	for _, f := range CubeFaces {
		// every face is a unit square: consecutive corners one edge apart
		for i := range f {
			d := verts[f[i]].Sub(verts[f[(i+1)%4]]).Norm()
			assert.InDelta(t, 1.0, d, 1e-12, "face %v", f)
		}
	}
}

func TestProject(t *testing.T) {
	t.Parallel()

	b := image.Rect(0, 0, 64, 64)
	assert.Equal(t, image.Pt(32, 32), Project(r3.Vector{}, b, 20))
	assert.Equal(t, image.Pt(42, 22), Project(r3.Vector{X: 0.5, Y: 0.5, Z: 9}, b, 20))
	assert.Equal(t, image.Pt(22, 42), Project(r3.Vector{X: -0.5, Y: -0.5}, b, 20))
}

func eye3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
