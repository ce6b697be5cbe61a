// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "time"

// StandardGravity in m/s².
const StandardGravity = 9.80665

// IMURaw represents a single raw IMU+mag sample in device counts.
type IMURaw struct {
	Source string `json:"source"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Mx int16 `json:"mx"` // magnetometer, µT×10
	My int16 `json:"my"`
	Mz int16 `json:"mz"`

	HasMag bool `json:"has_mag"`
}

// AccelCountsPerG returns the accelerometer sensitivity for a full scale
// range code (0=±2g, 1=±4g, 2=±8g, 3=±16g).
func AccelCountsPerG(rangeCode byte) float64 {
	switch rangeCode {
	case 1:
		return 8192
	case 2:
		return 4096
	case 3:
		return 2048
	default:
		return 16384
	}
}

// Samples converts a raw reading into per-stream samples in physical units.
// The magnetometer sample is only produced when the reading carries one.
func (r IMURaw) Samples(rangeCode byte, at time.Time) []Sample {
	k := StandardGravity / AccelCountsPerG(rangeCode)
	out := []Sample{{
		Type:   Accelerometer,
		Values: Vector{X: float64(r.Ax) * k, Y: float64(r.Ay) * k, Z: float64(r.Az) * k},
		Time:   at,
	}}
	if r.HasMag {
		out = append(out, Sample{
			Type:   Magnetometer,
			Values: Vector{X: float64(r.Mx) / 10, Y: float64(r.My) / 10, Z: float64(r.Mz) / 10},
			Time:   at,
		})
	}
	return out
}
