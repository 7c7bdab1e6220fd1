// Package config resolves the service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config carries every runtime setting of the service.
type Config struct {
	// ServerListenAddr is the network address the HTTP server listens on.
	ServerListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":3594"`
	// DataPath is the directory backing the record store.
	DataPath string `env:"DATA_PATH" envDefault:".data"`
	// MetadataProvider selects the online lookup backend: omdb, imdb or none.
	MetadataProvider string `env:"METADATA_PROVIDER" envDefault:"omdb"`
	// OMDBHost is the base URL of the OMDb API.
	OMDBHost string `env:"OMDB_HOST" envDefault:"https://www.omdbapi.com/"`
	// ServiceEnvironment tags telemetry and enables the stdout log fanout
	// in local environments (lcl, dk).
	ServiceEnvironment string `env:"SERVICE_ENVIRONMENT" envDefault:"lcl"`
	// OTELExporterEndpoint is the OTLP gRPC endpoint telemetry is shipped to.
	OTELExporterEndpoint string `env:"OTEL_EXPORTER_ENDPOINT" envDefault:"127.0.0.1:4317"`
	// StatsWebsocketChannel is the channel catalog statistics are published on.
	StatsWebsocketChannel string `env:"STATS_WEBSOCKET_CHANNEL" envDefault:"catalog:stats"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to env.Parse: %w", err)
	}
	return cfg, nil
}
