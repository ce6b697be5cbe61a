// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"github.com/relabs-tech/headtrack/internal/imu"
)

// Estimator turns filtered gravity and geomagnetic vectors into a Pose.
// On degenerate input it keeps the last valid matrix and pose.
type Estimator struct {
	remapX, remapY Axis

	matrix     RotationMatrix
	pose       Pose
	valid      bool
	degenerate uint64
}

// NewEstimator returns an estimator remapping device (X, Y) onto world (X, Z).
func NewEstimator() *Estimator {
	return &Estimator{remapX: AxisX, remapY: AxisZ}
}

// Update recomputes the orientation. The returned bool reports whether the
// inputs produced a fresh estimate; the pose is always the current one.
func (e *Estimator) Update(gravity, geomagnetic imu.Vector) (Pose, bool) {
	r, ok := RotationFromGravityMag(gravity, geomagnetic)
	if !ok {
		e.degenerate++
		return e.pose, false
	}
	remapped, ok := Remap(r, e.remapX, e.remapY)
	if !ok {
		e.degenerate++
		return e.pose, false
	}
	e.matrix = remapped
	e.pose = EulerFromMatrix(remapped)
	e.valid = true
	return e.pose, true
}

func (e *Estimator) Pose() Pose { return e.pose }

// Matrix returns the last valid remapped matrix and whether one exists.
func (e *Estimator) Matrix() (RotationMatrix, bool) { return e.matrix, e.valid }

// Degenerate counts updates rejected because the matrix was undefined.
func (e *Estimator) Degenerate() uint64 { return e.degenerate }

// DeviceVectors synthesizes the accelerometer and magnetometer readings a
// device would report when held at pose p, for a field with the given
// horizontal (northward) and vertical (downward) components in µT.
func DeviceVectors(p Pose, horizontalField, verticalField float64) (accel, mag imu.Vector) {
	basis, _ := Remap(Identity, AxisX, AxisZ)
	r := MatrixFromEuler(p).Mul(basis.Transpose())

	north := r.Row(1)
	up := r.Row(2)
	accel = up.Scale(imu.StandardGravity)
	mag = north.Scale(horizontalField)
	mag = imu.Vector{
		X: mag.X - up.X*verticalField,
		Y: mag.Y - up.Y*verticalField,
		Z: mag.Z - up.Z*verticalField,
	}
	return accel, mag
}
