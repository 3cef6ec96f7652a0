// Package config loads the server configuration from YAML and the
// environment.
package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/UkralStul/agora/internal/domain"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Ledger  Ledger  `yaml:"ledger"`
	Log     Log     `yaml:"log"`
	Tracing Tracing `yaml:"tracing"`
}

type Server struct {
	Port          string        `yaml:"port"`
	Storage       string        `yaml:"storage"` // in-memory or postgres
	PostgresDsn   string        `yaml:"postgresDsn"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisDB       int           `yaml:"redisDB"`
	RedisChannel  string        `yaml:"redisChannel"`
	MemcachedAddr string        `yaml:"memcachedAddr"`
	ReplayWindow  time.Duration `yaml:"replayWindow"`
}

type Ledger struct {
	Genesis    domain.Identity   `yaml:"genesis"`
	Parameters domain.Parameters `yaml:"parameters"`
	// TotalSupply switches quorum to a share of the supply when nonzero.
	TotalSupply uint64 `yaml:"totalSupply"`
}

type Log struct {
	Environment string `yaml:"environment"`
	Level       string `yaml:"level"`
}

type Tracing struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:         "8080",
			Storage:      "in-memory",
			RedisChannel: "agora-events",
			ReplayWindow: 10 * time.Minute,
		},
		Ledger: Ledger{
			Parameters: domain.DefaultParameters(),
		},
		Log: Log{
			Environment: "development",
			Level:       "info",
		},
		Tracing: Tracing{
			Endpoint: "localhost:4318",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides. An
// empty path uses the defaults alone.
func Load(path string) (Config, error) {
	config := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "open config")
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return Config{}, errors.Wrapf(err, "decode config %s", path)
		}
	}
	config.ApplyEnv(os.Getenv)
	return config, config.Validate()
}

// ApplyEnv overrides fields from PORT, DATABASE_URL, REDIS_ADDR,
// MEMCACHED_ADDR, GENESIS_IDENTITY and LOG_LEVEL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Server.PostgresDsn = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Server.RedisAddr = v
	}
	if v := getenv("MEMCACHED_ADDR"); v != "" {
		c.Server.MemcachedAddr = v
	}
	if v := getenv("GENESIS_IDENTITY"); v != "" {
		c.Ledger.Genesis = domain.Identity(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c Config) Validate() error {
	switch c.Server.Storage {
	case "in-memory":
	case "postgres":
		if c.Server.PostgresDsn == "" {
			return errors.New("config: postgres storage needs a DSN (server.postgresDsn or DATABASE_URL)")
		}
	default:
		return errors.Errorf("config: unknown storage %q", c.Server.Storage)
	}
	if c.Ledger.Genesis == "" {
		return errors.New("config: ledger.genesis is required")
	}
	if c.Server.ReplayWindow <= 0 {
		return errors.New("config: server.replayWindow must be positive")
	}
	return nil
}
