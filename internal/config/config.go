// Package config loads engine configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Data source kinds accepted in DATA_SOURCE.
const (
	SourceIndexer  = "indexer"
	SourceSnapshot = "snapshot"
)

// Config holds all engine settings. DATABASE_URL and REDIS_URL are optional:
// without a database the engine runs on the in-memory store, without Redis
// reads skip the cache layer.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	DataSource   string        `envconfig:"DATA_SOURCE" default:"indexer"`
	IndexerURL   string        `envconfig:"INDEXER_URL"`
	SnapshotPath string        `envconfig:"SNAPSHOT_PATH"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`

	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"60s"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	MaxPoolShare float64 `envconfig:"MAX_POOL_SHARE" default:"0.8"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch cfg.DataSource {
	case SourceIndexer:
		if cfg.IndexerURL == "" {
			return nil, fmt.Errorf("config: INDEXER_URL is required when DATA_SOURCE=indexer")
		}
	case SourceSnapshot:
		if cfg.SnapshotPath == "" {
			return nil, fmt.Errorf("config: SNAPSHOT_PATH is required when DATA_SOURCE=snapshot")
		}
	default:
		return nil, fmt.Errorf("config: unknown DATA_SOURCE %q (want indexer or snapshot)", cfg.DataSource)
	}

	return &cfg, nil
}
