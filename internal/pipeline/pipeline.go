// Package pipeline connects a sensor feed to the orientation source and the
// view smoother.
package pipeline

import (
	"github.com/relabs-tech/headtrack/internal/config"
	"github.com/relabs-tech/headtrack/internal/imu"
	"github.com/relabs-tech/headtrack/internal/metrics"
	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

// Options configures a Pipeline. Metrics and OnUpdate are optional.
type Options struct {
	Source   orientation.SourceConfig
	Smoother smoothing.Config
	Metrics  *metrics.Metrics

	// OnUpdate runs synchronously after every pose recomputation with the
	// pose and the smoothed view. It must not call Start or Stop.
	OnUpdate func(orientation.Pose, smoothing.View)
}

// OptionsFromConfig maps the loaded configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Source: orientation.SourceConfig{
			AccelAlpha: cfg.LowPassAlpha,
			MagAlpha:   cfg.LowPassAlpha,
		},
		Smoother: smoothing.Config{
			BufferSize:        cfg.BufferSize,
			PitchClampDegrees: cfg.PitchClampDegrees,
			SmoothingFactor:   cfg.SmoothingFactor,
			Debug:             cfg.SmootherDebug,
		},
	}
}

type Pipeline struct {
	source   *orientation.Source
	smoother *smoothing.Smoother
	metrics  *metrics.Metrics
	onUpdate func(orientation.Pose, smoothing.View)
}

func New(feed orientation.Feed, opts Options) *Pipeline {
	p := &Pipeline{
		smoother: smoothing.New(opts.Smoother),
		metrics:  opts.Metrics,
		onUpdate: opts.OnUpdate,
	}
	if feed != nil && p.metrics != nil {
		feed = countingFeed{Feed: feed, m: p.metrics}
	}
	p.source = orientation.NewSource(feed, opts.Source, p.handlePose)
	if p.metrics != nil {
		p.metrics.WatchSource(p.source.Stats)
	}
	return p
}

func (p *Pipeline) handlePose(pose orientation.Pose) {
	p.smoother.AddReading(pose.Azimuth, pose.Pitch)
	view := p.smoother.Orientation()
	if p.metrics != nil {
		p.metrics.ObservePose(pose)
		p.metrics.ObserveView(view)
	}
	if p.onUpdate != nil {
		p.onUpdate(pose, view)
	}
}

func (p *Pipeline) Start() error { return p.source.Start() }
func (p *Pipeline) Stop() error  { return p.source.Stop() }

func (p *Pipeline) Pose() orientation.Pose { return p.source.Pose() }

// Ready reports whether any pose has reached the smoother yet.
func (p *Pipeline) Ready() bool { return p.smoother.Active() }

// View is what a renderer reads once per frame.
func (p *Pipeline) View() smoothing.View { return p.smoother.Orientation() }

func (p *Pipeline) Source() *orientation.Source     { return p.source }
func (p *Pipeline) Smoother() *smoothing.Smoother { return p.smoother }

type countingFeed struct {
	orientation.Feed
	m *metrics.Metrics
}

func (c countingFeed) Start(deliver func(imu.Sample)) error {
	return c.Feed.Start(func(s imu.Sample) {
		c.m.ObserveSample(s.Type)
		deliver(s)
	})
}
