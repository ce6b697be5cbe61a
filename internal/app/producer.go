// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/relabs-tech/headtrack/internal/config"
	"github.com/relabs-tech/headtrack/internal/imu"
	"github.com/relabs-tech/headtrack/internal/sensors"
)

const producerLogEvery = 500

// samplePublisher forwards each sample to the topic of its stream.
type samplePublisher struct {
	client     sensors.Publisher
	accelTopic string
	magTopic   string
	published  atomic.Uint64
	failed     atomic.Uint64
}

func (p *samplePublisher) publish(s imu.Sample) {
	topic := p.accelTopic
	if s.Type == imu.Magnetometer {
		topic = p.magTopic
	}
	if err := sensors.PublishSample(p.client, topic, s); err != nil {
		if p.failed.Add(1)%producerLogEvery == 1 {
			log.Printf("producer: %v", err)
		}
		return
	}
	if n := p.published.Add(1); n%producerLogEvery == 0 {
		log.Printf("producer: published %d samples (last %s %+v)", n, s.Type, s.Values)
	}
}

// RunProducer publishes raw sensor samples to MQTT until interrupted.
func RunProducer() error {
	log.Println("starting headtrack sample producer")
	cfg := config.Get()

	if cfg.Feed == config.FeedMQTT {
		return fmt.Errorf("producer: feed %q would republish its own input", cfg.Feed)
	}

	feed, err := openLocalFeed(cfg)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, clientID(cfg.MQTTClientID, "producer"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	pub := &samplePublisher{client: client, accelTopic: cfg.TopicAccel, magTopic: cfg.TopicMag}
	if err := feed.Start(pub.publish); err != nil {
		return fmt.Errorf("producer: start feed: %w", err)
	}
	log.Printf("producer: publishing to %s and %s", cfg.TopicAccel, cfg.TopicMag)

	waitForSignal()

	log.Println("producer: shutting down")
	if err := feed.Stop(); err != nil {
		return fmt.Errorf("producer: stop feed: %w", err)
	}
	log.Printf("producer: %d samples published, %d failed", pub.published.Load(), pub.failed.Load())
	return nil
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	signal.Stop(sigCh)
}
