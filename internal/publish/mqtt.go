// Package publish forwards run summaries to an MQTT broker.
package publish

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jeongseonghan/cpfsk/internal/report"
)

// Config selects the broker and topic.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// ErrNoBroker is returned when the configuration names no broker.
var ErrNoBroker = errors.New("no MQTT broker configured")

const publishTimeout = 5 * time.Second

// MQTTPublisher publishes each run summary as JSON.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	logger *log.Logger
}

func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "cpfsk_" + hex.EncodeToString(b)
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg Config, logger *log.Logger) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, ErrNoBroker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID(generateClientID())
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "err", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	return newPublisher(client, cfg.Topic, logger), nil
}

func newPublisher(client mqtt.Client, topic string, logger *log.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, logger: logger}
}

// Publish sends the run summary with QoS 0, not retained.
func (p *MQTTPublisher) Publish(r *report.Run) error {
	payload, err := json.Marshal(r.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	p.logger.Debug("published run", "topic", p.topic, "id", r.ID, "bytes", len(payload))
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
