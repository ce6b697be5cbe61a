// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation fuses accelerometer and magnetometer streams into a
// tilt-compensated compass orientation.
package orientation

import (
	"math"

	"github.com/relabs-tech/headtrack/internal/imu"
)

// Pose is the device orientation in radians, after the axis remap.
// Azimuth and Roll lie in [−π, π], Pitch in [−π/2, π/2].
type Pose struct {
	Azimuth float64 `json:"azimuth"`
	Pitch   float64 `json:"pitch"`
	Roll    float64 `json:"roll"`
}

// Degrees returns the pose converted to degrees, for humans.
func (p Pose) Degrees() Pose {
	return Pose{
		Azimuth: p.Azimuth * 180.0 / math.Pi,
		Pitch:   p.Pitch * 180.0 / math.Pi,
		Roll:    p.Roll * 180.0 / math.Pi,
	}
}

// Feed is the external sensor feed: two independent push streams tagged by
// imu.SensorType. Start begins delivery from the feed's own goroutines and
// must not call deliver synchronously; Stop releases the subscription.
type Feed interface {
	Start(deliver func(imu.Sample)) error
	Stop() error
}
