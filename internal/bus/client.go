// Package bus is the MQTT boundary of the bridge. It wraps the paho
// client behind a minimal publish/subscribe surface so nothing above it
// touches MQTT types directly.
package bus

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// connectTimeout bounds the initial broker handshake. Reconnects after
// that are paho's business, not ours.
const connectTimeout = 10 * time.Second

// Options configures the broker connection.
type Options struct {
	Broker   string // e.g. tcp://127.0.0.1:1883
	Username string
	Password string
}

// Client is a thin JSON-publishing MQTT client.
type Client struct {
	c      mqtt.Client
	logger *log.Logger
}

// NewClient connects to the broker. The client id carries a random
// suffix so two bridges on one broker do not evict each other's
// sessions.
func NewClient(opts Options, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID("btbridge-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetOrderMatters(false)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	c := mqtt.NewClient(co)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Broker, err)
	}
	return &Client{c: c, logger: logger}, nil
}

// Publish JSON-marshals payload and sends it at QoS 0. Delivery is
// fire-and-forget; nothing above the bus waits for an acknowledgement.
func (c *Client) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}
	c.c.Publish(topic, 0, false, data)
	return nil
}

// Subscribe registers fn for every message on topic.
func (c *Client) Subscribe(topic string, fn func(payload []byte)) error {
	token := c.c.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fn(msg.Payload())
	})
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("subscribing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	c.logger.Printf("Subscribed to %s", topic)
	return nil
}

// Close disconnects from the broker, allowing a short drain for
// in-flight publishes.
func (c *Client) Close() {
	c.c.Disconnect(250)
}
