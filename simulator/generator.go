// Package simulator publishes synthetic incident reports over MQTT, for
// demos and load testing of the ingestion path.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dserban/dern/core/logger"
	"github.com/dserban/dern/infra/mqtt"
)

var incidentTypes = []string{"medical", "fire", "police"}

// Generator publishes random incidents on a fixed interval.
type Generator struct {
	cfg   Config
	topic string
	cli   paho.Client
	rng   *rand.Rand
	log   logger.Logger
}

// New connects to the broker and returns a ready Generator.
func New(cfg Config, mqttCfg mqtt.Config, log logger.Logger) (*Generator, error) {
	cfg.SetDefaults()
	mqttCfg.SetDefaults()
	mqttCfg.ClientID = fmt.Sprintf("%s-sim-%d", mqttCfg.ClientID, time.Now().UnixNano())
	opts, err := mqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return nil, err
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = mqttCfg.Topic
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:   cfg,
		topic: topic,
		cli:   cli,
		rng:   rand.New(rand.NewSource(seed)),
		log:   log,
	}, nil
}

// Run publishes incidents until the context is canceled.
func (g *Generator) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(g.cfg.IntervalMS) * time.Millisecond)
	defer ticker.Stop()
	defer g.cli.Disconnect(250)

	i := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		inc := g.randomIncident(i)
		payload, err := json.Marshal(inc)
		if err != nil {
			return err
		}
		if token := g.cli.Publish(g.topic, 0, false, payload); token.Wait() && token.Error() != nil {
			g.log.Errorf("publish incident: %v", token.Error())
			continue
		}
		g.log.Infof("published incident %s (%s)", inc["id"], inc["type"])
		i++
	}
}

// randomIncident builds one report around the configured center.
func (g *Generator) randomIncident(i int) map[string]any {
	return map[string]any{
		"id":       fmt.Sprintf("inc_%d_%d", time.Now().Unix(), i),
		"type":     incidentTypes[g.rng.Intn(len(incidentTypes))],
		"lat":      g.cfg.CenterLat + (g.rng.Float64()*2-1)*g.cfg.SpreadLat,
		"lon":      g.cfg.CenterLon + (g.rng.Float64()*2-1)*g.cfg.SpreadLon,
		"severity": 1 + g.rng.Intn(5),
	}
}
