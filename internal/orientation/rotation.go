// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/headtrack/internal/imu"
)

// RotationMatrix is a row-major 3x3 matrix mapping device coordinates into
// the world frame (east, north, up).
type RotationMatrix [9]float64

// Identity is the rotation of a device whose axes already match the world.
var Identity = RotationMatrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Axis codes for Remap. OR an axis with AxisMinus to flip its sign.
type Axis int

const (
	AxisX     Axis = 1
	AxisY     Axis = 2
	AxisZ     Axis = 3
	AxisMinus Axis = 0x80

	AxisMinusX = AxisX | AxisMinus
	AxisMinusY = AxisY | AxisMinus
	AxisMinusZ = AxisZ | AxisMinus
)

const (
	// minFieldNorm is the smallest |E × A| accepted; below it the device is
	// close to magnetic north/south pole alignment with gravity.
	minFieldNorm = 0.1
	// freeFallRatio of g² under which |A|² counts as free fall.
	freeFallRatio = 0.01
)

// RotationFromGravityMag builds the rotation matrix from a gravity vector
// (accelerometer, pointing up when at rest) and a geomagnetic vector.
// Rows are [east, north, up] in device coordinates. ok is false when the
// two vectors are (nearly) collinear or gravity is too small, in which case
// the matrix is undefined and must not be used.
func RotationFromGravityMag(gravity, geomagnetic imu.Vector) (RotationMatrix, bool) {
	if gravity.Dot(gravity) < freeFallRatio*imu.StandardGravity*imu.StandardGravity {
		return RotationMatrix{}, false
	}

	east := geomagnetic.Cross(gravity)
	normE := east.Norm()
	if normE < minFieldNorm || math.IsNaN(normE) || math.IsInf(normE, 0) {
		return RotationMatrix{}, false
	}
	east = east.Scale(1 / normE)
	up := gravity.Scale(1 / gravity.Norm())
	north := up.Cross(east)

	return RotationMatrix{
		east.X, east.Y, east.Z,
		north.X, north.Y, north.Z,
		up.X, up.Y, up.Z,
	}, true
}

// Remap rotates the supplied matrix so that it is expressed in a different
// device coordinate system. x and y name which device axis the world X and Y
// axes map onto. For (AxisX, AxisZ) device X stays X and device Y becomes Z,
// which turns "device held upright, camera forward" into "looking at the
// horizon". ok is false for invalid axis combinations.
func Remap(in RotationMatrix, x, y Axis) (RotationMatrix, bool) {
	if x&0x7C != 0 || y&0x7C != 0 {
		return in, false
	}
	if x&3 == 0 || y&3 == 0 || x&3 == y&3 {
		return in, false
	}

	z := x ^ y
	xi := int(x&3) - 1
	yi := int(y&3) - 1
	zi := int(z&3) - 1

	// keep the resulting coordinate system right handed
	axisY := (zi + 1) % 3
	axisZ := (zi + 2) % 3
	if (xi^axisY)|(yi^axisZ) != 0 {
		z ^= AxisMinus
	}

	sx := signOf(x)
	sy := signOf(y)
	sz := signOf(z)

	var out RotationMatrix
	for j := 0; j < 3; j++ {
		off := j * 3
		for i := 0; i < 3; i++ {
			switch i {
			case xi:
				out[off+i] = sx * in[off]
			case yi:
				out[off+i] = sy * in[off+1]
			case zi:
				out[off+i] = sz * in[off+2]
			}
		}
	}
	return out, true
}

func signOf(a Axis) float64 {
	if a&AxisMinus != 0 {
		return -1
	}
	return 1
}

// EulerFromMatrix extracts azimuth, pitch and roll (radians) from a
// rotation matrix using the usual orientation-from-rotation-matrix indices.
func EulerFromMatrix(m RotationMatrix) Pose {
	return Pose{
		Azimuth: math.Atan2(m[1], m[4]),
		Pitch:   math.Asin(clampUnit(-m[7])),
		Roll:    math.Atan2(-m[6], m[8]),
	}
}

// MatrixFromEuler is the inverse of EulerFromMatrix for pitch in (−π/2, π/2).
func MatrixFromEuler(p Pose) RotationMatrix {
	sa, ca := math.Sincos(p.Azimuth)
	sp, cp := math.Sincos(p.Pitch)
	sr, cr := math.Sincos(p.Roll)

	// rows of Rz(-azimuth) · Rx(-pitch) · Ry(roll)
	return RotationMatrix{
		ca*cr - sa*sp*sr, sa * cp, ca*sr + sa*sp*cr,
		-sa*cr - ca*sp*sr, ca * cp, -sa*sr + ca*sp*cr,
		-cp * sr, -sp, cp * cr,
	}
}

// Mul returns m · n.
func (m RotationMatrix) Mul(n RotationMatrix) RotationMatrix {
	var out RotationMatrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = m[r*3]*n[c] + m[r*3+1]*n[3+c] + m[r*3+2]*n[6+c]
		}
	}
	return out
}

func (m RotationMatrix) Transpose() RotationMatrix {
	return RotationMatrix{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Row returns row r as a vector.
func (m RotationMatrix) Row(r int) imu.Vector {
	return imu.Vector{X: m[r*3], Y: m[r*3+1], Z: m[r*3+2]}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
