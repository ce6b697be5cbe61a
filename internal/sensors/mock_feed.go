// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/relabs-tech/headtrack/internal/imu"
	"github.com/relabs-tech/headtrack/internal/orientation"
)

// Earth field used by the mock, roughly central Europe (µT).
const (
	mockHorizontalField = 20.0
	mockVerticalField   = 44.0
)

// MockFeed generates smoothly changing head motion and delivers the
// accelerometer and magnetometer readings a device would report for it.
// The magnetometer stream runs at half the accelerometer rate.
type MockFeed struct {
	interval time.Duration
	noise    float64

	mu    sync.Mutex
	start time.Time
	rng   *rand.Rand
	stop  chan struct{}
	done  chan struct{}
}

// NewMockFeed creates a mock feed ticking every interval. noise is the
// standard deviation of gaussian noise added to every axis.
func NewMockFeed(interval time.Duration, noise float64) *MockFeed {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &MockFeed{
		interval: interval,
		noise:    noise,
		rng:      rand.New(rand.NewSource(1)),
	}
}

// PoseAt returns the simulated head pose after elapsed seconds: a slow pan
// with a gentle nod and tilt.
func PoseAt(elapsed float64) orientation.Pose {
	deg := math.Pi / 180
	az := math.Mod(elapsed*30, 360)
	if az > 180 {
		az -= 360
	}
	return orientation.Pose{
		Azimuth: az * deg,
		Pitch:   15 * math.Cos(elapsed*0.7) * deg,
		Roll:    20 * math.Sin(elapsed) * deg,
	}
}

// Samples returns the readings for the pose at elapsed seconds.
func (m *MockFeed) Samples(elapsed float64, at time.Time) (accel, mag imu.Sample) {
	a, g := orientation.DeviceVectors(PoseAt(elapsed), mockHorizontalField, mockVerticalField)
	accel = imu.Sample{Type: imu.Accelerometer, Values: m.jitter(a), Time: at}
	mag = imu.Sample{Type: imu.Magnetometer, Values: m.jitter(g), Time: at}
	return accel, mag
}

func (m *MockFeed) jitter(v imu.Vector) imu.Vector {
	if m.noise == 0 {
		return v
	}
	return imu.Vector{
		X: v.X + m.rng.NormFloat64()*m.noise,
		Y: v.Y + m.rng.NormFloat64()*m.noise,
		Z: v.Z + m.rng.NormFloat64()*m.noise,
	}
}

func (m *MockFeed) Start(deliver func(imu.Sample)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return nil
	}
	m.start = time.Now()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(deliver, m.stop, m.done)
	return nil
}

func (m *MockFeed) run(deliver func(imu.Sample), stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-stop:
			return
		case t := <-ticker.C:
			accel, mag := m.Samples(t.Sub(m.start).Seconds(), t)
			deliver(accel)
			if tick%2 == 0 {
				deliver(mag)
			}
			tick++
		}
	}
}

func (m *MockFeed) Stop() error {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}
