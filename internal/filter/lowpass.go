// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter holds the per-channel exponential smoothing applied to raw
// sensor vectors before they reach the rotation math.
package filter

import "github.com/relabs-tech/headtrack/internal/imu"

// DefaultAlpha matches the low pass factor used for both sensor channels.
const DefaultAlpha = 0.1

// Apply moves state toward sample by alpha on each axis independently:
//
//	state[i] += alpha * (sample[i] - state[i])
//
// alpha near 0 smooths heavily, alpha = 1 passes samples through.
func Apply(state *imu.Vector, sample imu.Vector, alpha float64) {
	state.X += alpha * (sample.X - state.X)
	state.Y += alpha * (sample.Y - state.Y)
	state.Z += alpha * (sample.Z - state.Z)
}

// LowPass keeps the persistent state of one filtered vector stream.
type LowPass struct {
	alpha float64
	state imu.Vector
}

// NewLowPass returns a filter starting from the zero vector.
// Values of alpha outside (0, 1] fall back to DefaultAlpha.
func NewLowPass(alpha float64) *LowPass {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &LowPass{alpha: alpha}
}

// Update folds sample into the state and returns the new state.
func (f *LowPass) Update(sample imu.Vector) imu.Vector {
	Apply(&f.state, sample, f.alpha)
	return f.state
}

func (f *LowPass) State() imu.Vector { return f.state }

func (f *LowPass) Alpha() float64 { return f.alpha }

// Reset puts the state back to the zero vector.
func (f *LowPass) Reset() { f.state = imu.Vector{} }
