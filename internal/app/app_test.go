package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/headtrack/internal/config"
	"github.com/relabs-tech/headtrack/internal/imu"
	"github.com/relabs-tech/headtrack/internal/orientation"
	"github.com/relabs-tech/headtrack/internal/sensors"
	"github.com/relabs-tech/headtrack/internal/smoothing"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type recordingClient struct {
	mu       sync.Mutex
	messages map[string][][]byte
	retained map[string]bool
	err      error
}

func newRecordingClient() *recordingClient {
	return &recordingClient{messages: map[string][][]byte{}, retained: map[string]bool{}}
}

func (c *recordingClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return doneToken{err: c.err}
	}
	c.messages[topic] = append(c.messages[topic], payload.([]byte))
	c.retained[topic] = retained
	return doneToken{}
}

func (c *recordingClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return doneToken{} }
func (c *recordingClient) Unsubscribe(...string) mqtt.Token                         { return doneToken{} }

func (c *recordingClient) count(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages[topic])
}

func TestClientID(t *testing.T) {
	assert.Equal(t, "rig-producer", clientID("rig", "producer"))

	a, b := clientID("", "console"), clientID("", "console")
	assert.True(t, strings.HasPrefix(a, "headtrack-console-"))
	assert.NotEqual(t, a, b)
}

func TestSamplePublisher_RoutesByType(t *testing.T) {
	c := newRecordingClient()
	p := &samplePublisher{client: c, accelTopic: "a", magTopic: "m"}

	p.publish(imu.Sample{Type: imu.Accelerometer, Values: imu.Vector{Y: 9.8}})
	p.publish(imu.Sample{Type: imu.Magnetometer, Values: imu.Vector{Y: -40}})
	p.publish(imu.Sample{Type: imu.Accelerometer})

	assert.Equal(t, 2, c.count("a"))
	assert.Equal(t, 1, c.count("m"))
	assert.False(t, c.retained["a"])
	assert.Equal(t, uint64(3), p.published.Load())

	got, err := sensors.DecodeSample(imu.Magnetometer, c.messages["m"][0])
	require.NoError(t, err)
	assert.Equal(t, -40.0, got.Values.Y)

	c.err = errors.New("not connected")
	p.publish(imu.Sample{Type: imu.Accelerometer})
	assert.Equal(t, uint64(1), p.failed.Load())
}

func TestPublishState(t *testing.T) {
	c := newRecordingClient()
	tr := &fakeTracker{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		publishState(ctx, c, tr, "pose", "view", 2*time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, c.count("pose"), "nothing before the first reading")

	tr.set(orientation.Pose{Azimuth: 1}, smoothing.View{Phi: 2, Theta: 3})
	require.Eventually(t, func() bool { return c.count("view") > 0 }, 2*time.Second, 2*time.Millisecond)
	cancel()
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.True(t, c.retained["pose"])
	var v smoothing.View
	require.NoError(t, json.Unmarshal(c.messages["view"][0], &v))
	assert.Equal(t, smoothing.View{Phi: 2, Theta: 3}, v)
}

func TestOpenFeed(t *testing.T) {
	cfg := config.Default()

	cfg.Feed = config.FeedMock
	f, err := openFeed(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &sensors.MockFeed{}, f)

	cfg.Feed = config.FeedSerial
	cfg.SerialPort = "/dev/ttyUSB0"
	f, err = openFeed(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &sensors.SerialFeed{}, f)

	cfg.Feed = config.FeedMQTT
	_, err = openFeed(cfg, nil)
	assert.Error(t, err)
	f, err = openFeed(cfg, newRecordingClient())
	require.NoError(t, err)
	assert.IsType(t, &sensors.MQTTFeed{}, f)

	cfg.Feed = "carrier-pigeon"
	_, err = openFeed(cfg, nil)
	assert.Error(t, err)

	cfg.Feed = config.FeedMQTT
	_, err = openLocalFeed(cfg)
	assert.Error(t, err)
}

func TestFormatConsoleLine(t *testing.T) {
	line := formatConsoleLine(
		orientation.Pose{Azimuth: -1.5707963267948966, Pitch: 0.5235987755982988},
		smoothing.InitialView,
	)
	assert.Contains(t, line, "AZ= -90.00")
	assert.Contains(t, line, "PITCH= 30.00")
	assert.Contains(t, line, "PHI= 90.00")
	assert.Contains(t, line, "THETA=   90.00")
}
