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

	require.NoError(t, c.Validate())
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, BackendMemory, c.Store.Backend)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "trirecover.assessments", c.Kafka.Topics.Assessments)
	assert.Equal(t, "info", c.Log.Level)
	assert.False(t, c.Supabase.Enabled())
	assert.True(t, c.RateLimit.Enabled)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
server:
  port: 9090
store:
  backend: postgres
  postgres:
    dsn: postgres://u:p@db:5432/tri
kafka:
  enabled: true
  brokers: [k1:9092, k2:9092]
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 30*time.Second, c.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, int32(8), c.Store.Postgres.MaxConns)
}

func TestValidate_CrossField(t *testing.T) {
	c := Default()
	c.Store.Backend = BackendPostgres
	assert.Error(t, c.Validate(), "postgres without dsn")

	c = Default()
	c.Kafka.Enabled = true
	assert.Error(t, c.Validate(), "kafka without brokers")

	c = Default()
	c.Kafka.Logs.Enabled = true
	assert.ErrorContains(t, c.Validate(), "kafka.logs.enabled")

	c = Default()
	c.Engine.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, c.Validate(), "engine.timezone")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ENVIRONMENT":   "staging",
		"DATABASE_URL":  "postgres://x@y/z",
		"REDIS_ADDR":    "cache:6380",
		"KAFKA_BROKERS": "a:9092, b:9092,",
		"SUPABASE_URL":  "https://example.supabase.co",
		"SUPABASE_KEY":  "anon",
		"HTTP_PORT":     "7000",
	}
	c := Default()
	c.applyEnv(func(k string) string { return env[k] })

	require.NoError(t, c.Validate())
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, BackendPostgres, c.Store.Backend)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.True(t, c.Supabase.Enabled())
	assert.Equal(t, 7000, c.Server.Port)
}
