package config_test

import (
	"testing"

	"github.com/ogero/filmoteca/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":3594", cfg.ServerListenAddr)
	assert.Equal(t, ".data", cfg.DataPath)
	assert.Equal(t, "omdb", cfg.MetadataProvider)
	assert.Equal(t, "https://www.omdbapi.com/", cfg.OMDBHost)
	assert.Equal(t, "lcl", cfg.ServiceEnvironment)
	assert.Equal(t, "127.0.0.1:4317", cfg.OTELExporterEndpoint)
	assert.Equal(t, "catalog:stats", cfg.StatsWebsocketChannel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_LISTEN_ADDR", ":8080")
	t.Setenv("METADATA_PROVIDER", "imdb")
	t.Setenv("STATS_WEBSOCKET_CHANNEL", "catalog:stats:test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerListenAddr)
	assert.Equal(t, "imdb", cfg.MetadataProvider)
	assert.Equal(t, "catalog:stats:test", cfg.StatsWebsocketChannel)
}
