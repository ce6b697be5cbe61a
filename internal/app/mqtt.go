package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/relabs-tech/headtrack/internal/sensors"
)

// clientID returns the configured id, or role plus a random suffix so
// several instances can share a broker.
func clientID(configured, role string) string {
	if configured != "" {
		return configured + "-" + role
	}
	return "headtrack-" + role + "-" + uuid.NewString()[:8]
}

func connectMQTT(broker, id string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(id).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, id)
	return client, nil
}

// publishJSON sends v as a retained message so late subscribers get the
// current state.
func publishJSON(client sensors.Publisher, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	token := client.Publish(topic, 0, true, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}
