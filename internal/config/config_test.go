package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  port: "9090"
  storage: postgres
  postgresDsn: postgres://agora@localhost/agora
  redisAddr: localhost:6379
  replayWindow: 5m
ledger:
  genesis: 3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da29
  parameters:
    flagThreshold: 3
    voteDuration: 24h
    quorumPercentage: 20
  totalSupply: 1000000
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "REDIS_ADDR", "MEMCACHED_ADDR", "GENESIS_IDENTITY", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Server.Storage)
	assert.Equal(t, 5*time.Minute, cfg.Server.ReplayWindow)
	assert.Equal(t, "agora-events", cfg.Server.RedisChannel)
	assert.Equal(t, uint64(3), cfg.Ledger.Parameters.FlagThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Ledger.Parameters.VoteDuration)
	assert.Equal(t, uint64(20), cfg.Ledger.Parameters.QuorumPercentage)
	assert.Equal(t, uint64(1000000), cfg.Ledger.TotalSupply)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"PORT":             "7000",
		"DATABASE_URL":     "postgres://x",
		"GENESIS_IDENTITY": "root",
		"LOG_LEVEL":        "warn",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "postgres://x", cfg.Server.PostgresDsn)
	assert.Equal(t, "root", string(cfg.Ledger.Genesis))
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Server.RedisAddr)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "genesis is required")

	cfg.Ledger.Genesis = "root"
	assert.NoError(t, cfg.Validate())

	cfg.Server.Storage = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.Server.Storage = "sqlite"
	assert.Error(t, cfg.Validate())
}
