// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display shows the tracked orientation on a 128x64 SSD1306 panel.
package display

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

const (
	width      = 128
	height     = 64
	lineHeight = 13
)

// Panel is the drawing surface of an SSD1306 device.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Snapshot is what one frame shows. Ready is false until the first pose.
type Snapshot struct {
	Pose  orientation.Pose
	View  smoothing.View
	Ready bool
}

// Open initializes periph and the panel on the named I2C bus ("" picks the
// first one). The returned close func releases the bus.
func Open(busName string) (*ssd1306.Dev, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %q", busName)
	return dev, bus.Close, nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, row int, text string) {
	d.Dot = fixed.P(x, row*lineHeight)
	d.DrawString(text)
}

// Splash is shown while the feed starts.
func Splash() image.Image {
	img, d := newFrame()
	drawLine(d, 20, 2, "Head Track")
	drawLine(d, 15, 3, "starting...")
	return img
}

// Render draws pose angles and the view direction in degrees.
func Render(s Snapshot) image.Image {
	img, d := newFrame()
	if !s.Ready {
		drawLine(d, 0, 2, "Orientation")
		drawLine(d, 0, 3, "Waiting...")
		return img
	}
	p := s.Pose.Degrees()
	drawLine(d, 0, 1, fmt.Sprintf("A: %6.1f", p.Azimuth))
	drawLine(d, 0, 2, fmt.Sprintf("P: %6.1f", p.Pitch))
	drawLine(d, 0, 3, fmt.Sprintf("R: %6.1f", p.Roll))
	drawLine(d, 0, 4, fmt.Sprintf("V:%5.1f %6.1f", deg(s.View.Phi), deg(s.View.Theta)))
	return img
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

// Run redraws the panel every interval until ctx is done. Draw errors are
// logged and the loop continues.
func Run(ctx context.Context, panel Panel, interval time.Duration, snapshot func() Snapshot) error {
	if err := panel.Draw(panel.Bounds(), Splash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := panel.Draw(panel.Bounds(), Render(snapshot()), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
