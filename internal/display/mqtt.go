// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// publisher is the part of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every pose as retained JSON on a topic.
type MQTT struct {
	client  publisher
	topic   string
	timeout time.Duration
	closer  func()
}

// DialMQTT connects to broker and returns a sink publishing on topic.
func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("display: connected to MQTT broker at %s, publishing on %s", broker, topic)

	s := newMQTT(client, topic)
	s.closer = func() { client.Disconnect(250) }
	return s, nil
}

func newMQTT(client publisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic, timeout: time.Second}
}

func (m *MQTT) Show(f Frame) error {
	payload, err := json.Marshal(f.Pose)
	if err != nil {
		return fmt.Errorf("marshal pose: %w", err)
	}

	token := m.client.Publish(m.topic, 0, true, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("publish %s: timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

func (m *MQTT) Close() error {
	if m.closer != nil {
		m.closer()
	}
	return nil
}
