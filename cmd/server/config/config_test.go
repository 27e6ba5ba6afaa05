package config

import (
	"testing"
	"time"
)

func setSagaEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SAGA_TOPIC", "")
	t.Setenv("SAGA_ACTIVITY_CHANNEL", "")
	t.Setenv("SAGA_COMPENSATION_CHANNEL", "")
	t.Setenv("SAGA_CONSUMER_GROUP", "")
	t.Setenv("SAGA_CONSUMER_BLOCK", "")
	t.Setenv("SAGA_CLAIM_MIN_IDLE", "")
	t.Setenv("ACTIVITY_FUNCTION_URL", "http://localhost:8081/activity")
	t.Setenv("SAGA_ACTIVITY_TIMEOUT", "5s")
	t.Setenv("SAGA_STREAM_MAXLEN", "1000")
}

func TestLoadSaga_Defaults(t *testing.T) {
	setSagaEnv(t)

	cfg, err := LoadSaga()
	if err != nil {
		t.Fatalf("LoadSaga: %v", err)
	}
	if cfg.Topic != "saga" {
		t.Fatalf("unexpected topic %q", cfg.Topic)
	}
	if cfg.ActivityChannel != "activity" || cfg.CompensationChannel != "compensation" {
		t.Fatalf("unexpected channels %q %q", cfg.ActivityChannel, cfg.CompensationChannel)
	}
	if cfg.ActivityTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.ActivityTimeout)
	}
	if cfg.StreamMaxLen != 1000 {
		t.Fatalf("unexpected maxlen %d", cfg.StreamMaxLen)
	}
	if cfg.ConsumerBlock != nil || cfg.ClaimMinIdle != nil {
		t.Fatalf("expected unset tuning to stay nil")
	}
}

func TestLoadSaga_RequiresActivityURL(t *testing.T) {
	setSagaEnv(t)
	t.Setenv("ACTIVITY_FUNCTION_URL", "")

	if _, err := LoadSaga(); err == nil {
		t.Fatalf("expected error when ACTIVITY_FUNCTION_URL is empty")
	}
}

func TestLoadSaga_RequiresTimeout(t *testing.T) {
	setSagaEnv(t)
	t.Setenv("SAGA_ACTIVITY_TIMEOUT", "")

	if _, err := LoadSaga(); err == nil {
		t.Fatalf("expected error when SAGA_ACTIVITY_TIMEOUT is empty")
	}
}

func TestLoadSaga_RejectsIdenticalChannels(t *testing.T) {
	setSagaEnv(t)
	t.Setenv("SAGA_ACTIVITY_CHANNEL", "steps")
	t.Setenv("SAGA_COMPENSATION_CHANNEL", "steps")

	if _, err := LoadSaga(); err == nil {
		t.Fatalf("expected error for identical channel names")
	}
}

func TestLoadSaga_OptionalTuning(t *testing.T) {
	setSagaEnv(t)
	t.Setenv("SAGA_CONSUMER_BLOCK", "250ms")
	t.Setenv("SAGA_CLAIM_MIN_IDLE", "30s")

	cfg, err := LoadSaga()
	if err != nil {
		t.Fatalf("LoadSaga: %v", err)
	}
	if cfg.ConsumerBlock == nil || *cfg.ConsumerBlock != 250*time.Millisecond {
		t.Fatalf("unexpected block %v", cfg.ConsumerBlock)
	}
	if cfg.ClaimMinIdle == nil || *cfg.ClaimMinIdle != 30*time.Second {
		t.Fatalf("unexpected min idle %v", cfg.ClaimMinIdle)
	}
}

func TestLoadStore_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("STORE_TABLE", "")
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadStore(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is empty")
	}
}

func TestLoadStore_Postgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STORE_TABLE", "orders")
	t.Setenv("DATABASE_URL", "postgres://localhost/saga")

	cfg, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/saga" || cfg.Table != "orders" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadStore_Memory(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("STORE_TABLE", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	if cfg.Driver != "memory" {
		t.Fatalf("unexpected driver %q", cfg.Driver)
	}
	if cfg.Table != "saga_records" {
		t.Fatalf("unexpected table %q", cfg.Table)
	}
}

func TestLoadStore_UnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cosmos")

	if _, err := LoadStore(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestLoadHTTP(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("HTTP_RATE_LIMIT_INTERVAL", "10ms")
	t.Setenv("HTTP_RATE_LIMIT_BURST", "5")

	cfg, err := LoadHTTP()
	if err != nil {
		t.Fatalf("LoadHTTP: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.RateLimitInterval != 10*time.Millisecond || cfg.RateLimitBurst != 5 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadHTTP_RequiresAddr(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")

	if _, err := LoadHTTP(); err == nil {
		t.Fatalf("expected error when HTTP_ADDR is empty")
	}
}

func TestLoadHTTP_RejectsBadBurst(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("HTTP_RATE_LIMIT_INTERVAL", "10ms")
	t.Setenv("HTTP_RATE_LIMIT_BURST", "-1")

	if _, err := LoadHTTP(); err == nil {
		t.Fatalf("expected error for negative burst")
	}
}

func TestLoadRedis_RequiresURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	if _, err := LoadRedis(); err == nil {
		t.Fatalf("expected error when REDIS_URL is empty")
	}
}

func TestLoadRedis_ParsesTuning(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_DIAL_TIMEOUT", "2s")
	t.Setenv("REDIS_READ_TIMEOUT", "")
	t.Setenv("REDIS_WRITE_TIMEOUT", "")
	t.Setenv("REDIS_POOL_SIZE", "10")
	t.Setenv("REDIS_MIN_IDLE_CONNS", "")
	t.Setenv("REDIS_MAX_RETRIES", "3")
	t.Setenv("REDIS_HEALTHCHECK_TIMEOUT", "1s")
	t.Setenv("REDIS_OTEL", "true")
	t.Setenv("REDIS_TLS_CA_FILE", "")
	t.Setenv("REDIS_TLS_CERT_FILE", "")
	t.Setenv("REDIS_TLS_KEY_FILE", "")
	t.Setenv("REDIS_TLS_SERVER_NAME", "")
	t.Setenv("REDIS_TLS_INSECURE_SKIP_VERIFY", "")

	cfg, err := LoadRedis()
	if err != nil {
		t.Fatalf("LoadRedis: %v", err)
	}
	if cfg.DialTimeout == nil || *cfg.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected dial timeout %v", cfg.DialTimeout)
	}
	if cfg.PoolSize == nil || *cfg.PoolSize != 10 {
		t.Fatalf("unexpected pool size %v", cfg.PoolSize)
	}
	if cfg.ReadTimeout != nil {
		t.Fatalf("expected unset read timeout to stay nil")
	}
	if !cfg.EnableOTel {
		t.Fatalf("expected otel enabled")
	}
	if cfg.HealthcheckTimeout != time.Second {
		t.Fatalf("unexpected healthcheck timeout %v", cfg.HealthcheckTimeout)
	}
}

func TestLoadRedis_TLSCertRequiresKey(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_HEALTHCHECK_TIMEOUT", "1s")
	t.Setenv("REDIS_TLS_CERT_FILE", "/tmp/cert.pem")
	t.Setenv("REDIS_TLS_KEY_FILE", "")

	if _, err := LoadRedis(); err == nil {
		t.Fatalf("expected error when cert is set without key")
	}
}

func TestLoadObservability_RequiresAddr(t *testing.T) {
	t.Setenv("OBS_ADDR", "")

	if _, err := LoadObservability(); err == nil {
		t.Fatalf("expected error when OBS_ADDR is empty")
	}
}
