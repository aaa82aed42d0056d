// Package broker publishes per-tick telemetry samples to an MQTT broker.
// Publishing is optional: a node with no BROKER_URL configured never
// touches MQTT.
package broker

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/HW-25/Project-QLX/internal/model"
)

const publishTimeout = 5 * time.Second

// Publisher sends samples to qlx/<node_id>/telemetry.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// Connect dials the broker. The returned Publisher reconnects
// automatically; the initial connect failing is an error so the caller
// can decide to run without a broker.
func Connect(brokerURL, nodeID string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID("qlx-" + nodeID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("broker: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("broker: connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("broker: connect to %s: %w", brokerURL, err)
	}

	return &Publisher{
		client: client,
		topic:  "qlx/" + nodeID + "/telemetry",
	}, nil
}

// Publish sends one sample as JSON at QoS 0. Readings are ephemeral, so a
// dropped publish is not worth blocking the sampling loop over.
func (p *Publisher) Publish(sample model.Sample) error {
	payload, err := json.Marshal(map[string]any{
		"timestamp":  sample.Timestamp.UTC().Format(time.RFC3339Nano),
		"node_id":    sample.NodeID,
		"source":     sample.Source,
		"power_mw":   sample.PowerMW,
		"energy_mws": sample.EnergyMWs,
		"valor":      sample.Valor,
	})
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("broker: publish to %s timed out", p.topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
