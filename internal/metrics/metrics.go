// Package metrics exports pipeline counters and the current head
// orientation to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/relabs-tech/headtrack/internal/imu"
	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

const namespace = "headtrack"

// Metrics groups the collectors one pipeline updates.
type Metrics struct {
	samples  *prometheus.CounterVec
	poses    prometheus.Counter
	pose     *prometheus.GaugeVec
	view     *prometheus.GaugeVec
	frames   prometheus.Counter
	viewers  prometheus.Gauge
	registry prometheus.Registerer
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		samples: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "samples_total",
			Help:      "Sensor samples received, by sensor type.",
		}, []string{"type"}),
		poses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "pose_updates_total",
			Help:      "Pose notifications handed to the smoother.",
		}),
		pose: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "pose_radians",
			Help:      "Latest device pose.",
		}, []string{"axis"}),
		view: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "smoother",
			Name:      "view_radians",
			Help:      "Current smoothed view angles.",
		}, []string{"angle"}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "frames_sent_total",
			Help:      "View frames written to websocket viewers.",
		}),
		viewers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "viewers",
			Help:      "Connected websocket viewers.",
		}),
	}
}

// WatchSource exports the source's own counters. stats is read at scrape time.
func (m *Metrics) WatchSource(stats func() (samples, degenerate uint64)) {
	f := promauto.With(m.registry)
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "processed_samples_total",
		Help:      "Samples filtered by the orientation source.",
	}, func() float64 {
		n, _ := stats()
		return float64(n)
	})
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "degenerate_total",
		Help:      "Rotation updates rejected for free fall or a field parallel to gravity.",
	}, func() float64 {
		_, n := stats()
		return float64(n)
	})
}

func (m *Metrics) ObserveSample(typ imu.SensorType) {
	m.samples.WithLabelValues(string(typ)).Inc()
}

func (m *Metrics) ObservePose(p orientation.Pose) {
	m.poses.Inc()
	m.pose.WithLabelValues("azimuth").Set(p.Azimuth)
	m.pose.WithLabelValues("pitch").Set(p.Pitch)
	m.pose.WithLabelValues("roll").Set(p.Roll)
}

func (m *Metrics) ObserveView(v smoothing.View) {
	m.view.WithLabelValues("phi").Set(v.Phi)
	m.view.WithLabelValues("theta").Set(v.Theta)
}

func (m *Metrics) FrameSent()       { m.frames.Inc() }
func (m *Metrics) ViewerConnected() { m.viewers.Inc() }
func (m *Metrics) ViewerLeft()      { m.viewers.Dec() }
