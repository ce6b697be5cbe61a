// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/headtrack/internal/filter"
	"github.com/relabs-tech/headtrack/internal/imu"
)

// SourceConfig holds the per-channel low pass factors.
type SourceConfig struct {
	AccelAlpha float64
	MagAlpha   float64
}

func DefaultSourceConfig() SourceConfig {
	return SourceConfig{AccelAlpha: filter.DefaultAlpha, MagAlpha: filter.DefaultAlpha}
}

// Source owns the feed subscription, filters each channel and recomputes
// the pose on every sample, handing it to onPose synchronously.
//
// Samples are serialized: a sample (filter, recompute, onPose) runs to
// completion before the next one starts. onPose must not call Start or Stop.
type Source struct {
	feed   Feed
	onPose func(Pose)

	lifeMu sync.Mutex // serializes Start/Stop

	mu        sync.Mutex // single writer for everything below
	active    atomic.Bool
	accel     *filter.LowPass
	mag       *filter.LowPass
	haveAccel bool
	haveMag   bool
	est       *Estimator

	samples    atomic.Uint64
	degenerate atomic.Uint64

	poseMu sync.RWMutex
	pose   Pose
}

// NewSource wires a feed to a pose consumer. feed and onPose may be nil; a
// nil feed makes the Source usable through OnAccelerometer/OnMagnetometer.
func NewSource(feed Feed, cfg SourceConfig, onPose func(Pose)) *Source {
	return &Source{
		feed:   feed,
		onPose: onPose,
		accel:  filter.NewLowPass(cfg.AccelAlpha),
		mag:    filter.NewLowPass(cfg.MagAlpha),
		est:    NewEstimator(),
	}
}

// Start subscribes to the feed. Calling Start on an active Source is a no-op.
func (s *Source) Start() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	if s.active.Load() {
		s.mu.Unlock()
		return nil
	}
	s.active.Store(true)
	s.mu.Unlock()

	if s.feed == nil {
		return nil
	}
	if err := s.feed.Start(s.deliver); err != nil {
		s.mu.Lock()
		s.active.Store(false)
		s.mu.Unlock()
		return fmt.Errorf("orientation: start feed: %w", err)
	}
	return nil
}

// Stop releases the feed. It waits for an in-flight sample to finish and
// drops anything delivered afterwards. Stop without Start is a no-op.
func (s *Source) Stop() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	if !s.active.Load() {
		s.mu.Unlock()
		return nil
	}
	s.active.Store(false)
	s.mu.Unlock()

	if s.feed == nil {
		return nil
	}
	if err := s.feed.Stop(); err != nil {
		return fmt.Errorf("orientation: stop feed: %w", err)
	}
	return nil
}

func (s *Source) Active() bool { return s.active.Load() }

// deliver is handed to the feed; samples arriving while inactive are dropped.
func (s *Source) deliver(sample imu.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return
	}
	s.handleLocked(sample.Type, sample.Values)
}

// HandleSample dispatches a tagged sample to the matching channel.
func (s *Source) HandleSample(sample imu.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleLocked(sample.Type, sample.Values)
}

func (s *Source) OnAccelerometer(v imu.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleLocked(imu.Accelerometer, v)
}

func (s *Source) OnMagnetometer(v imu.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleLocked(imu.Magnetometer, v)
}

func (s *Source) handleLocked(typ imu.SensorType, v imu.Vector) {
	switch typ {
	case imu.Accelerometer:
		s.accel.Update(v)
		s.haveAccel = true
	case imu.Magnetometer:
		s.mag.Update(v)
		s.haveMag = true
	default:
		return
	}
	s.samples.Add(1)

	// Both channels must have reported before the matrix means anything.
	if s.haveAccel && s.haveMag {
		pose, ok := s.est.Update(s.accel.State(), s.mag.State())
		if !ok {
			s.degenerate.Add(1)
		}
		s.poseMu.Lock()
		s.pose = pose
		s.poseMu.Unlock()
	}

	if s.onPose != nil {
		s.onPose(s.Pose())
	}
}

// Pose returns the last computed orientation, zero before both channels
// have reported.
func (s *Source) Pose() Pose {
	s.poseMu.RLock()
	defer s.poseMu.RUnlock()
	return s.pose
}

func (s *Source) Azimuth() float64 { return s.Pose().Azimuth }
func (s *Source) Pitch() float64   { return s.Pose().Pitch }
func (s *Source) Roll() float64    { return s.Pose().Roll }

// Stats reports how many samples were processed and how many updates were
// rejected as degenerate.
func (s *Source) Stats() (samples, degenerate uint64) {
	return s.samples.Load(), s.degenerate.Load()
}
