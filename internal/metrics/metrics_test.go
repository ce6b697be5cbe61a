package metrics

import (
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/headtrack/internal/imu"
	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSample(imu.Accelerometer)
	m.ObserveSample(imu.Accelerometer)
	m.ObserveSample(imu.Magnetometer)
	m.ObservePose(orientation.Pose{Azimuth: 1, Pitch: -0.5, Roll: 0.25})
	m.ObserveView(smoothing.View{Phi: math.Pi / 2, Theta: 0.1})
	m.FrameSent()
	m.ViewerConnected()
	m.ViewerConnected()
	m.ViewerLeft()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.samples.WithLabelValues("accel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues("mag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.poses))
	assert.Equal(t, -0.5, testutil.ToFloat64(m.pose.WithLabelValues("pitch")))
	assert.Equal(t, 0.1, testutil.ToFloat64(m.view.WithLabelValues("theta")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.viewers))
}

func TestMetrics_WatchSource(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	samples, degenerate := uint64(0), uint64(0)
	m.WatchSource(func() (uint64, uint64) { return samples, degenerate })

	samples, degenerate = 42, 3
	expected := `
# HELP headtrack_source_degenerate_total Rotation updates rejected for free fall or a field parallel to gravity.
# TYPE headtrack_source_degenerate_total counter
headtrack_source_degenerate_total 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "headtrack_source_degenerate_total"))

	n, err := testutil.GatherAndCount(reg, "headtrack_source_processed_samples_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_PerRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
