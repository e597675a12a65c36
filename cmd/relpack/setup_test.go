package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/relpack/internal/config"
)

func TestConnectPublisher_DisabledReturnsNil(t *testing.T) {
	cfg := &config.Config{}
	assert.Nil(t, connectPublisher(cfg))
}

func TestConnectPublisher_ConnectFailureDegradesToNil(t *testing.T) {
	cfg := &config.Config{
		Events: config.EventsConfig{
			Enabled: true,
			URL:     "nats://127.0.0.1:1",
			Subject: "relpack.builds",
		},
	}
	assert.Nil(t, connectPublisher(cfg))
}
