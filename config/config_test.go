package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("LOOPLY_CONFIG", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOOPLY_CONFIG", "")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("AUTH_RATE_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, 20, cfg.Server.AuthRateLimit, "invalid ints fall back to the default")
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "looply.yaml")
	body := `
server:
  port: "7000"
  log_level: debug
jwt:
  secret_key: from-file
  refresh_ttl: 48h
feed:
  cache_ttl: 5s
redis:
  addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("LOOPLY_CONFIG", path)
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7001", cfg.Server.Port, "env wins over file")
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "from-file", cfg.JWT.SecretKey)
	assert.Equal(t, 48*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5*time.Second, cfg.Feed.CacheTTL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestDatabaseDSN(t *testing.T) {
	d := Default().Database
	d.Password = "pw"
	assert.Equal(t, "host=localhost user=postgres password=pw dbname=looply port=5432 sslmode=disable TimeZone=UTC", d.DSN())

	d.URL = "postgres://u:p@db/looply"
	assert.Equal(t, "postgres://u:p@db/looply", d.DSN())
}
