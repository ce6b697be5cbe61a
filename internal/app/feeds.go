// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/headtrack/internal/config"
	"github.com/relabs-tech/headtrack/internal/sensors"
)

const mockNoise = 0.05

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// openLocalFeed builds a feed that reads this machine's sensors (or the
// mock). The spi feed only carries the accelerometer.
func openLocalFeed(cfg *config.Config) (sensors.Feed, error) {
	switch cfg.Feed {
	case config.FeedMock:
		log.Println("using mock sensor feed")
		return sensors.NewMockFeed(ms(cfg.MockSampleInterval), mockNoise), nil

	case config.FeedSerial:
		log.Printf("using serial sensor feed on %s", cfg.SerialPort)
		return sensors.NewSerialFeed(cfg.SerialPort, cfg.SerialBaudRate), nil

	case config.FeedSPI:
		dev, err := sensors.OpenMPU9250(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
		if err != nil {
			return nil, err
		}
		log.Printf("using SPI accelerometer on %s", cfg.IMUSPIDevice)
		return sensors.NewSPIFeed("head", dev, cfg.IMUAccelRange, ms(cfg.IMUSampleInterval)), nil

	default:
		return nil, fmt.Errorf("feed %q has no local sensors", cfg.Feed)
	}
}

// openFeed builds the feed that drives the pipeline. sub is only used by
// the mqtt and spi feeds and may be nil otherwise.
func openFeed(cfg *config.Config, sub sensors.Subscriber) (sensors.Feed, error) {
	if needsBroker(cfg.Feed) && sub == nil {
		return nil, fmt.Errorf("feed %q needs an MQTT connection", cfg.Feed)
	}

	switch cfg.Feed {
	case config.FeedMQTT:
		log.Printf("using MQTT sensor feed (%s, %s)", cfg.TopicAccel, cfg.TopicMag)
		return sensors.NewMQTTFeed(sub, cfg.TopicAccel, cfg.TopicMag), nil

	case config.FeedSPI:
		accel, err := openLocalFeed(cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("magnetometer from %s", cfg.TopicMag)
		return sensors.Combine(accel, sensors.NewMQTTFeed(sub, "", cfg.TopicMag)), nil

	default:
		return openLocalFeed(cfg)
	}
}

// needsBroker reports whether the feed reads from MQTT.
func needsBroker(feed string) bool {
	return feed == config.FeedMQTT || feed == config.FeedSPI
}
