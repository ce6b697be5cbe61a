package sensors

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/headtrack/internal/imu"
)

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeBroker struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	failTopic    string
	published    map[string][]byte
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: map[string]mqtt.MessageHandler{}, published: map[string][]byte{}}
}

func (b *fakeBroker) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == b.failTopic {
		return fakeToken{err: errors.New("not authorized")}
	}
	b.handlers[topic] = cb
	return fakeToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		delete(b.handlers, t)
	}
	b.unsubscribed = append(b.unsubscribed, topics...)
	return fakeToken{}
}

func (b *fakeBroker) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[topic] = payload.([]byte)
	return fakeToken{}
}

func (b *fakeBroker) send(topic string, payload []byte) {
	b.mu.Lock()
	h := b.handlers[topic]
	b.mu.Unlock()
	if h != nil {
		h(nil, fakeMessage{topic: topic, payload: payload})
	}
}

func TestMQTTFeed_RoutesByTopic(t *testing.T) {
	b := newFakeBroker()
	f := NewMQTTFeed(b, "imu/accel", "imu/mag")

	var got []imu.Sample
	require.NoError(t, f.Start(func(s imu.Sample) { got = append(got, s) }))

	b.send("imu/accel", []byte(`{"values":{"x":0,"y":9.8,"z":0}}`))
	b.send("imu/mag", []byte(`{"type":"mag","values":{"x":0,"y":-40,"z":-20}}`))
	b.send("imu/mag", []byte(`not json`))
	b.send("imu/mag", []byte(`{"type":"accel","values":{"x":1,"y":1,"z":1}}`))

	require.Len(t, got, 2)
	assert.Equal(t, imu.Accelerometer, got[0].Type)
	assert.Equal(t, 9.8, got[0].Values.Y)
	assert.False(t, got[0].Time.IsZero())
	assert.Equal(t, imu.Magnetometer, got[1].Type)
	assert.Equal(t, -20.0, got[1].Values.Z)

	require.NoError(t, f.Stop())
	assert.ElementsMatch(t, []string{"imu/accel", "imu/mag"}, b.unsubscribed)
	assert.Empty(t, b.handlers)
}

func TestMQTTFeed_SubscribeFailureRollsBack(t *testing.T) {
	b := newFakeBroker()
	b.failTopic = "imu/mag"
	f := NewMQTTFeed(b, "imu/accel", "imu/mag")

	err := f.Start(func(imu.Sample) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imu/mag")
	assert.Equal(t, []string{"imu/accel"}, b.unsubscribed)
	assert.Empty(t, b.handlers)
}

func TestMQTTFeed_SingleStream(t *testing.T) {
	b := newFakeBroker()
	f := NewMQTTFeed(b, "", "imu/mag")
	require.NoError(t, f.Start(func(imu.Sample) {}))
	assert.Len(t, b.handlers, 1)
	require.NoError(t, f.Stop())
	assert.Equal(t, []string{"imu/mag"}, b.unsubscribed)
}

func TestPublishSample_DecodesBack(t *testing.T) {
	b := newFakeBroker()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := imu.Sample{Type: imu.Magnetometer, Values: imu.Vector{X: 1, Y: 2, Z: 3}, Time: at}

	require.NoError(t, PublishSample(b, "imu/mag", s))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b.published["imu/mag"], &raw))
	assert.Equal(t, "mag", raw["type"])

	got, err := DecodeSample(imu.Magnetometer, b.published["imu/mag"])
	require.NoError(t, err)
	assert.Equal(t, s.Values, got.Values)
	assert.True(t, at.Equal(got.Time))
}

func TestDecodeSample(t *testing.T) {
	s, err := DecodeSample(imu.Accelerometer, []byte(`{"type":"accelerometer","values":{"x":1,"y":2,"z":3}}`))
	require.NoError(t, err)
	assert.Equal(t, imu.Accelerometer, s.Type)

	_, err = DecodeSample(imu.Accelerometer, []byte(`{"type":"gyro"}`))
	assert.Error(t, err)

	_, err = DecodeSample(imu.Magnetometer, []byte(`{"type":"accel"}`))
	assert.Error(t, err)
}
