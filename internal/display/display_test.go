package display

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

type fakePanel struct {
	mu     sync.Mutex
	frames []image.Image
	err    error
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, width, height) }

func (p *fakePanel) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, src)
	return p.err
}

func (p *fakePanel) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func litPixels(img image.Image) int {
	n := 0
	for _, b := range img.(*image1bit.VerticalLSB).Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestRender_Waiting(t *testing.T) {
	img := Render(Snapshot{})
	assert.Equal(t, image.Rect(0, 0, 128, 64), img.Bounds())
	assert.Positive(t, litPixels(img))
}

func TestRender_ChangesWithPose(t *testing.T) {
	a := Render(Snapshot{Ready: true, View: smoothing.InitialView})
	b := Render(Snapshot{
		Ready: true,
		Pose:  orientation.Pose{Azimuth: 1.2, Pitch: -0.3, Roll: 0.7},
		View:  smoothing.View{Phi: 1.1, Theta: -2},
	})
	assert.Positive(t, litPixels(a))
	assert.NotEqual(t, a.(*image1bit.VerticalLSB).Pix, b.(*image1bit.VerticalLSB).Pix)
}

func TestRun_RedrawsUntilCancelled(t *testing.T) {
	panel := &fakePanel{err: errors.New("i2c nack")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, panel, 2*time.Millisecond, func() Snapshot { return Snapshot{Ready: true} })
	}()

	require.Eventually(t, func() bool { return panel.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
