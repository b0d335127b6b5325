// Package mqtt ingests incident reports published by field gateways and
// simulators. Each report is decoded, enriched, persisted and announced on
// the event bus.
package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dserban/dern/core/events"
	"github.com/dserban/dern/core/ingest"
	"github.com/dserban/dern/core/logger"
	"github.com/dserban/dern/core/storage"
	"github.com/dserban/dern/internal/eventbus"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Consumer subscribes to the incident topic and feeds reports into storage.
type Consumer struct {
	cli       pahoClient
	cfg       Config
	incidents storage.IncidentRepository
	enricher  *ingest.Enricher
	bus       eventbus.EventBus
	log       logger.Logger
}

// NewConsumer connects to the broker and subscribes to the incident topic.
// Subscription is re-established on every reconnect.
func NewConsumer(cfg Config, incidents storage.IncidentRepository, enricher *ingest.Enricher, bus eventbus.EventBus, log logger.Logger) (*Consumer, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	c := &Consumer{
		cfg:       cfg,
		incidents: incidents,
		enricher:  enricher,
		bus:       bus,
		log:       log,
	}
	opts.OnConnect = func(cli paho.Client) {
		log.Infof("MQTT connected, subscribing to %s", cfg.Topic)
		if token := cli.Subscribe(cfg.Topic, cfg.QoS, c.onReport); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	c.cli = cli
	return c, nil
}

// onReport handles one incident report. Malformed payloads are logged and
// dropped; ingestion never propagates a failure back to the broker.
func (c *Consumer) onReport(_ paho.Client, msg paho.Message) {
	var inc incidentReport
	if err := json.Unmarshal(msg.Payload(), &inc); err != nil {
		c.log.Errorf("decode incident report: %v", err)
		return
	}
	in := inc.toModel()
	if err := in.Validate(); err != nil {
		c.log.Errorf("invalid incident report: %v", err)
		return
	}
	c.enricher.Enrich(&in)
	if err := c.incidents.Save(context.Background(), in); err != nil {
		c.log.Errorf("save incident %s: %v", in.ID, err)
		return
	}
	c.log.Infof("ingested incident %s (%s, severity %d)", in.ID, in.Type, in.Severity)
	if c.bus != nil {
		c.bus.Publish(events.IncidentUpdated(in))
	}
}

// Close disconnects from the broker.
func (c *Consumer) Close() {
	if c.cli != nil {
		c.cli.Disconnect(250)
	}
}
