// Package smoothing turns the jittery azimuth/pitch stream into a
// display-stable view direction.
//
// Two stages: a moving average over the last BufferSize readings removes
// sensor noise, then an exponential step toward that average removes
// residual frame-to-frame jitter.
package smoothing

import (
	"log"
	"math"
	"sync"

	"gonum.org/v1/gonum/num/quat"
)

// Config holds the smoother constants.
type Config struct {
	BufferSize        int
	PitchClampDegrees float64
	SmoothingFactor   float64
	// Debug logs theta in degrees on every accepted reading.
	Debug bool
}

func DefaultConfig() Config {
	return Config{
		BufferSize:        10,
		PitchClampDegrees: 85,
		SmoothingFactor:   0.05,
	}
}

// View is the display-ready orientation in spherical coordinates.
// Phi is the co-latitude (π/2 is the horizon), Theta the accumulated azimuth.
type View struct {
	Phi   float64 `json:"phi"`
	Theta float64 `json:"theta"`
}

// InitialView looks at the horizon facing azimuth π/2.
var InitialView = View{Phi: math.Pi / 2, Theta: math.Pi / 2}

// Smoother is safe for one writer (AddReading) and many readers.
type Smoother struct {
	cfg   Config
	clamp float64

	mu      sync.RWMutex
	azimuth *Ring
	pitch   *Ring
	view    View
	target  View
	active  bool
}

// New builds a Smoother; zero or invalid fields in cfg take the defaults.
func New(cfg Config) *Smoother {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.PitchClampDegrees <= 0 || cfg.PitchClampDegrees > 90 {
		cfg.PitchClampDegrees = def.PitchClampDegrees
	}
	if cfg.SmoothingFactor <= 0 || cfg.SmoothingFactor > 1 {
		cfg.SmoothingFactor = def.SmoothingFactor
	}
	return &Smoother{
		cfg:     cfg,
		clamp:   cfg.PitchClampDegrees * math.Pi / 180,
		azimuth: NewRing(cfg.BufferSize),
		pitch:   NewRing(cfg.BufferSize),
		view:    InitialView,
		target:  InitialView,
	}
}

// AddReading folds one azimuth/pitch pair (radians) into the view.
//
// Theta follows the mean azimuth without wrap handling: crossing ±π makes
// the average and the exponential step take the long way round.
func (s *Smoother) AddReading(azimuth, pitch float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.azimuth.Push(azimuth)
	s.pitch.Push(pitch)

	meanPitch := math.Max(-s.clamp, math.Min(s.pitch.Mean(), s.clamp))
	s.target = View{
		Phi:   meanPitch + math.Pi/2,
		Theta: s.azimuth.Mean(),
	}

	f := s.cfg.SmoothingFactor
	s.view.Phi += f * (s.target.Phi - s.view.Phi)
	s.view.Theta += f * (s.target.Theta - s.view.Theta)
	s.active = true

	if s.cfg.Debug {
		log.Printf("smoother: theta=%.2f°", s.view.Theta*180/math.Pi)
	}
}

// Orientation returns the current view. It never mutates state.
func (s *Smoother) Orientation() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Target returns the clamped moving-average view the smoother is heading to.
func (s *Smoother) Target() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Active reports whether any reading has been accepted since New or Reset.
func (s *Smoother) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Reset drops all readings and returns to the initial view.
func (s *Smoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.azimuth.Reset()
	s.pitch.Reset()
	s.view = InitialView
	s.target = InitialView
	s.active = false
}

// Quaternion returns the camera rotation for the view: yaw by Theta about
// the vertical axis, then tilt by Phi−π/2 about the lateral axis.
func (v View) Quaternion() quat.Number {
	yaw := v.Theta / 2
	tilt := (v.Phi - math.Pi/2) / 2
	qYaw := quat.Number{Real: math.Cos(yaw), Kmag: math.Sin(yaw)}
	qTilt := quat.Number{Real: math.Cos(tilt), Imag: math.Sin(tilt)}
	return quat.Mul(qYaw, qTilt)
}
