package app

import (
	"testing"

	"github.com/dserban/dern/config"
)

func TestNewServiceWithoutBroker(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	svc, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if svc.Manager == nil || svc.Pool == nil {
		t.Fatal("core components not wired")
	}
	if svc.consumer != nil {
		t.Fatal("MQTT consumer created although ingestion is disabled")
	}
	if svc.router == nil {
		t.Fatal("HTTP router not assembled")
	}
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
}
