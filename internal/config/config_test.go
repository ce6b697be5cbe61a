package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_KeyValue(t *testing.T) {
	path := writeFile(t, "headtrack_config.txt", `
# smoothing
LOWPASS_ALPHA=0.2
SMOOTHER_BUFFER_SIZE = 20
PITCH_CLAMP_DEGREES=80
SMOOTHING_FACTOR=0.1
SMOOTHER_DEBUG=true

FEED=MQTT
MQTT_BROKER=tcp://pi.local:1883
TOPIC_ACCEL=head/accel
TOPIC_MAG=head/mag
IMU_ACCEL_RANGE=2
FRAME_INTERVAL=33
DISPLAY_ENABLE=1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.LowPassAlpha)
	assert.Equal(t, 20, cfg.BufferSize)
	assert.Equal(t, 80.0, cfg.PitchClampDegrees)
	assert.Equal(t, 0.1, cfg.SmoothingFactor)
	assert.True(t, cfg.SmootherDebug)
	assert.Equal(t, FeedMQTT, cfg.Feed)
	assert.Equal(t, "tcp://pi.local:1883", cfg.MQTTBroker)
	assert.Equal(t, "head/accel", cfg.TopicAccel)
	assert.Equal(t, "head/mag", cfg.TopicMag)
	assert.Equal(t, byte(2), cfg.IMUAccelRange)
	assert.Equal(t, 33, cfg.FrameInterval)
	assert.True(t, cfg.DisplayEnable)

	// untouched keys keep defaults
	assert.Equal(t, "headtrack/pose", cfg.TopicPose)
	assert.Equal(t, 8080, cfg.WebServerPort)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.txt", "# nothing\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 0.1, cfg.LowPassAlpha)
	assert.Equal(t, 10, cfg.BufferSize)
	assert.Equal(t, 85.0, cfg.PitchClampDegrees)
	assert.Equal(t, 0.05, cfg.SmoothingFactor)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "headtrack.yaml", `
lowpass_alpha: 0.3
smoother_buffer_size: 5
feed: serial
serial_port: /dev/ttyUSB0
serial_baud_rate: 57600
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.LowPassAlpha)
	assert.Equal(t, 5, cfg.BufferSize)
	assert.Equal(t, FeedSerial, cfg.Feed)
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialPort)
	assert.Equal(t, 57600, cfg.SerialBaudRate)
	assert.Equal(t, 0.05, cfg.SmoothingFactor)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"missing separator": "LOWPASS_ALPHA\n",
		"unknown key":       "NOPE=1\n",
		"bad float":         "LOWPASS_ALPHA=abc\n",
		"alpha range":       "LOWPASS_ALPHA=1.5\n",
		"zero buffer":       "SMOOTHER_BUFFER_SIZE=0\n",
		"clamp range":       "PITCH_CLAMP_DEGREES=95\n",
		"factor range":      "SMOOTHING_FACTOR=0\n",
		"accel range":       "IMU_ACCEL_RANGE=4\n",
		"bad bool":          "DISPLAY_ENABLE=maybe\n",
		"unknown feed":      "FEED=bluetooth\n",
		"serial port":       "FEED=serial\n",
		"spi device":        "FEED=spi\n",
		"mqtt broker":       "FEED=mqtt\nMQTT_BROKER=\n",
		"frame interval":    "FRAME_INTERVAL=0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.txt", body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "lowpass_alpha: [1, 2]\n"))
	assert.Error(t, err)
}

func TestInitGlobal(t *testing.T) {
	path := writeFile(t, "g.txt", "WEB_SERVER_PORT=9090\n")
	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, 9090, Get().WebServerPort)

	// later calls keep the first config
	require.NoError(t, InitGlobal(writeFile(t, "h.txt", "WEB_SERVER_PORT=1\n")))
	assert.Equal(t, 9090, Get().WebServerPort)
}
