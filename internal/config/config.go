package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Feed kinds.
const (
	FeedMQTT   = "mqtt"
	FeedSerial = "serial"
	FeedSPI    = "spi"
	FeedMock   = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// Filtering and smoothing
	LowPassAlpha      float64 `yaml:"lowpass_alpha"`
	BufferSize        int     `yaml:"smoother_buffer_size"`
	PitchClampDegrees float64 `yaml:"pitch_clamp_degrees"`
	SmoothingFactor   float64 `yaml:"smoothing_factor"`
	SmootherDebug     bool    `yaml:"smoother_debug"`

	// Which sensor feed drives the pipeline: mqtt, serial, spi or mock.
	Feed string `yaml:"feed"`

	// MQTT
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	// Topics
	TopicAccel string `yaml:"topic_accel"`
	TopicMag   string `yaml:"topic_mag"`
	TopicPose  string `yaml:"topic_pose"`
	TopicView  string `yaml:"topic_view"`

	// Serial IMU board
	SerialPort     string `yaml:"serial_port"`
	SerialBaudRate int    `yaml:"serial_baud_rate"`

	// IMU Hardware
	IMUSPIDevice string `yaml:"imu_spi_device"`
	IMUCSPin     string `yaml:"imu_cs_pin"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte `yaml:"imu_accel_range"`

	// Timing (milliseconds)
	IMUSampleInterval  int `yaml:"imu_sample_interval"`
	MockSampleInterval int `yaml:"mock_sample_interval"`
	FrameInterval      int `yaml:"frame_interval"`

	// Web Server
	WebServerPort int `yaml:"web_server_port"`

	// Display
	DisplayEnable         bool   `yaml:"display_enable"`
	DisplayI2CBus         string `yaml:"display_i2c_bus"`
	DisplayUpdateInterval int    `yaml:"display_update_interval"`
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		LowPassAlpha:          0.1,
		BufferSize:            10,
		PitchClampDegrees:     85,
		SmoothingFactor:       0.05,
		Feed:                  FeedMock,
		MQTTBroker:            "tcp://localhost:1883",
		TopicAccel:            "headtrack/imu/accel",
		TopicMag:              "headtrack/imu/mag",
		TopicPose:             "headtrack/pose",
		TopicView:             "headtrack/view",
		SerialBaudRate:        115200,
		IMUCSPin:              "18",
		IMUSampleInterval:     20,
		MockSampleInterval:    20,
		FrameInterval:         16,
		WebServerPort:         8080,
		DisplayUpdateInterval: 250,
	}
}

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml are parsed as YAML, anything else as
// KEY=VALUE lines with # comments.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config yaml: %w", err)
		}
	default:
		if err := cfg.parseLines(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseLines(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Filtering and smoothing
	case "LOWPASS_ALPHA":
		return parseFloat(key, value, &c.LowPassAlpha)
	case "SMOOTHER_BUFFER_SIZE":
		return parseInt(key, value, &c.BufferSize)
	case "PITCH_CLAMP_DEGREES":
		return parseFloat(key, value, &c.PitchClampDegrees)
	case "SMOOTHING_FACTOR":
		return parseFloat(key, value, &c.SmoothingFactor)
	case "SMOOTHER_DEBUG":
		return parseBool(key, value, &c.SmootherDebug)

	case "FEED":
		c.Feed = strings.ToLower(value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value

	// Topics
	case "TOPIC_ACCEL":
		c.TopicAccel = value
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_VIEW":
		c.TopicView = value

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		return parseInt(key, value, &c.SerialBaudRate)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		return parseInt(key, value, &c.IMUSampleInterval)
	case "MOCK_SAMPLE_INTERVAL":
		return parseInt(key, value, &c.MockSampleInterval)
	case "FRAME_INTERVAL":
		return parseInt(key, value, &c.FrameInterval)

	// Web Server
	case "WEB_SERVER_PORT":
		return parseInt(key, value, &c.WebServerPort)

	// Display
	case "DISPLAY_ENABLE":
		return parseBool(key, value, &c.DisplayEnable)
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		return parseInt(key, value, &c.DisplayUpdateInterval)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseInt(key, value string, dst *int) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func parseFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func parseBool(key, value string, dst *bool) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// validate checks ranges and that the selected feed has what it needs.
func (c *Config) validate() error {
	if c.LowPassAlpha <= 0 || c.LowPassAlpha > 1 {
		return fmt.Errorf("LOWPASS_ALPHA must be in (0, 1], got %v", c.LowPassAlpha)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("SMOOTHER_BUFFER_SIZE must be at least 1, got %d", c.BufferSize)
	}
	if c.PitchClampDegrees <= 0 || c.PitchClampDegrees > 90 {
		return fmt.Errorf("PITCH_CLAMP_DEGREES must be in (0, 90], got %v", c.PitchClampDegrees)
	}
	if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		return fmt.Errorf("SMOOTHING_FACTOR must be in (0, 1], got %v", c.SmoothingFactor)
	}
	if c.IMUAccelRange > 3 {
		return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3, got %d", c.IMUAccelRange)
	}

	switch c.Feed {
	case FeedMock:
	case FeedMQTT:
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required for the mqtt feed")
		}
		if c.TopicAccel == "" || c.TopicMag == "" {
			return fmt.Errorf("TOPIC_ACCEL and TOPIC_MAG are required for the mqtt feed")
		}
	case FeedSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for the serial feed")
		}
		if c.SerialBaudRate == 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE is required for the serial feed")
		}
	case FeedSPI:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for the spi feed")
		}
		if c.TopicMag == "" || c.MQTTBroker == "" {
			return fmt.Errorf("the spi feed reads the magnetometer from MQTT: MQTT_BROKER and TOPIC_MAG are required")
		}
	default:
		return fmt.Errorf("unknown FEED %q (want mqtt, serial, spi or mock)", c.Feed)
	}

	if c.IMUSampleInterval <= 0 || c.MockSampleInterval <= 0 || c.FrameInterval <= 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL, MOCK_SAMPLE_INTERVAL and FRAME_INTERVAL must be positive")
	}
	if c.DisplayEnable && c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive when the display is enabled")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return the first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
