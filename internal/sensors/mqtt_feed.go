// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/headtrack/internal/imu"
)

// Subscriber is the part of mqtt.Client the feed needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Publisher is the part of mqtt.Client producers need.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTFeed subscribes to one topic per sensor stream. Each message carries a
// JSON imu.Sample; the type tag defaults to the topic's stream.
type MQTTFeed struct {
	client     Subscriber
	accelTopic string
	magTopic   string
	qos        byte
}

func NewMQTTFeed(client Subscriber, accelTopic, magTopic string) *MQTTFeed {
	return &MQTTFeed{client: client, accelTopic: accelTopic, magTopic: magTopic}
}

func (f *MQTTFeed) Start(deliver func(imu.Sample)) error {
	subs := []struct {
		topic string
		typ   imu.SensorType
	}{
		{f.accelTopic, imu.Accelerometer},
		{f.magTopic, imu.Magnetometer},
	}
	var subscribed []string
	for _, s := range subs {
		if s.topic == "" {
			continue
		}
		token := f.client.Subscribe(s.topic, f.qos, f.handler(s.typ, deliver))
		token.Wait()
		if err := token.Error(); err != nil {
			if len(subscribed) > 0 {
				f.client.Unsubscribe(subscribed...).Wait()
			}
			return fmt.Errorf("mqtt: subscribe %s: %w", s.topic, err)
		}
		subscribed = append(subscribed, s.topic)
		log.Printf("mqtt feed: subscribed to %s (%s)", s.topic, s.typ)
	}
	return nil
}

func (f *MQTTFeed) handler(typ imu.SensorType, deliver func(imu.Sample)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		sample, err := DecodeSample(typ, msg.Payload())
		if err != nil {
			log.Printf("mqtt feed: %s payload error: %v", msg.Topic(), err)
			return
		}
		deliver(sample)
	}
}

func (f *MQTTFeed) Stop() error {
	var topics []string
	for _, t := range []string{f.accelTopic, f.magTopic} {
		if t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return nil
	}
	token := f.client.Unsubscribe(topics...)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: unsubscribe: %w", err)
	}
	return nil
}

// DecodeSample parses a JSON sample published on a stream of type typ.
// A missing type tag takes typ; a conflicting one is an error. A missing
// timestamp is set to now.
func DecodeSample(typ imu.SensorType, payload []byte) (imu.Sample, error) {
	var s imu.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		return imu.Sample{}, fmt.Errorf("unmarshal sample: %w", err)
	}
	if s.Type == "" {
		s.Type = typ
	} else {
		parsed, err := imu.ParseSensorType(string(s.Type))
		if err != nil {
			return imu.Sample{}, err
		}
		s.Type = parsed
	}
	if s.Type != typ {
		return imu.Sample{}, fmt.Errorf("sample type %q on %s stream", s.Type, typ)
	}
	if s.Time.IsZero() {
		s.Time = time.Now()
	}
	return s, nil
}

// PublishSample sends one sample as JSON.
func PublishSample(client Publisher, topic string, s imu.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("json marshal sample: %w", err)
	}
	token := client.Publish(topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}
