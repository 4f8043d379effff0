package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "conservative", c.Fitting.DefaultStrategy)
	assert.Equal(t, 2*time.Second, c.Fitting.DefaultTimeout)
	assert.Equal(t, "info", c.Logging.Level)
	assert.False(t, c.Kafka.Enabled)
	assert.NoError(t, c.Validate())
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
server:
  port: 9090
fitting:
  workers: 4
  default_strategy: extensive
  quality:
    high_r_squared: 0.9
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 4, c.Fitting.Workers)
	assert.Equal(t, 0.9, c.Fitting.Quality.HighRSquared)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "bubblescope.fits", c.Kafka.Topic)
	assert.Equal(t, 30*time.Second, c.Server.ReadTimeout)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("fitting:\n  default_strategy: reckless\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("kafka:\n  enabled: true\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"BUBBLESCOPE_PORT": "7070",
		"KAFKA_BROKERS":    "a:1,b:2",
		"REDIS_ADDR":       "cache:6379",
		"FITTING_WORKERS":  "not-a-number",
	}
	c := Default()
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, 7070, c.Server.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:1", "b:2"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
	assert.Zero(t, c.Fitting.Workers)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "conservative", c.Fitting.DefaultStrategy)
	assert.Equal(t, 6*time.Hour, c.Fitting.CacheTTL)
	assert.Equal(t, "lppl_selections", c.ClickHouse.ResultTable)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, uint32(5), c.Breaker.FailureThreshold)
}
