package track

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishTimeout bounds how long a publish waits for broker acknowledgement.
const publishTimeout = 5 * time.Second

// Publisher manages publishing fused aircraft state to MQTT.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
}

// NewPublisher creates a new fused-state publisher.
// If client is nil, publishing is disabled (for testing).
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = "skyfuse"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // QoS 0 for state updates (fire and forget)
		retain:        true, // Retain for latest state
	}
}

// NewPublisherWithPrefix creates a publisher with an explicit topic prefix,
// bypassing the environment lookup.
func NewPublisherWithPrefix(client mqtt.Client, prefix string) *Publisher {
	p := NewPublisher(client)
	if prefix != "" {
		p.publishPrefix = prefix
	}
	return p
}

// PublishCycle publishes one cycle's output: each aircraft to its individual
// topic plus the combined list and stats to shared topics.
func (p *Publisher) PublishCycle(entities []*FusedAircraft, stats ProcessingStats) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	for _, a := range entities {
		if err := p.publishIndividual(a); err != nil {
			log.Printf("Error publishing aircraft %s: %v", a.Key(), err)
			return err
		}
	}

	if err := p.publishCombined(entities); err != nil {
		log.Printf("Error publishing combined aircraft list: %v", err)
		return err
	}

	if err := p.publishStats(stats); err != nil {
		log.Printf("Error publishing cycle stats: %v", err)
		return err
	}

	return nil
}

// publishIndividual publishes one aircraft to its individual topic:
// {prefix}/aircraft/{key}
func (p *Publisher) publishIndividual(a *FusedAircraft) error {
	topic := fmt.Sprintf("%s/aircraft/%s", p.publishPrefix, a.Key())

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling aircraft %s: %w", a.Key(), err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// publishCombined publishes the full entity list to {prefix}/aircraft.
func (p *Publisher) publishCombined(entities []*FusedAircraft) error {
	topic := fmt.Sprintf("%s/aircraft", p.publishPrefix)

	payload, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("marshaling aircraft list: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// publishStats publishes cycle statistics to {prefix}/stats.
func (p *Publisher) publishStats(stats ProcessingStats) error {
	topic := fmt.Sprintf("%s/stats", p.publishPrefix)

	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}
