// Package mqtt publishes timer snapshots to an MQTT broker so wall displays
// and home-automation rules can follow the countdown.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures a broker connection.
type Options struct {
	Broker   string
	ClientID string
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
}

// NewRealPublisher connects to the broker and returns a publisher.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("mqtt broker not configured")
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "cactus"
	}

	popts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(popts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{client: client}, nil
}

// Publish sends payload to topic with QoS 0.
func (p *RealPublisher) Publish(topic string, payload []byte, retained bool) error {
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
