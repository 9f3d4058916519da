package api

import (
	"testing"

	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *HTTPServerConfig {
	return &HTTPServerConfig{
		ListenAddr: "127.0.0.1:0",
		Vault: VaultConfig{
			StorageLocations: []interfaces.StoreLocation{"memory://"},
			Cipher:           "aes-256-gcm",
			AgentKeyFile:     "agent-key.json",
		},
	}
}

func TestHTTPServerConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(*HTTPServerConfig)
	}{
		{name: "no listen address", modify: func(c *HTTPServerConfig) { c.ListenAddr = "" }},
		{name: "negative body size", modify: func(c *HTTPServerConfig) { c.MaxBodySize = -1 }},
		{name: "no storage", modify: func(c *HTTPServerConfig) { c.Vault.StorageLocations = nil }},
		{name: "unknown cipher", modify: func(c *HTTPServerConfig) { c.Vault.Cipher = "rot13" }},
		{name: "no agent key", modify: func(c *HTTPServerConfig) { c.Vault.AgentKeyFile = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestHTTPServerConfig_BodyLimit(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, DefaultMaxBodySize, cfg.BodyLimit())

	cfg.MaxBodySize = 512
	assert.Equal(t, int64(512), cfg.BodyLimit())
}
