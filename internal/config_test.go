package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hookscope")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/hookscope", cfg.AdminDatabaseUrl)
	assert.Equal(t, domain.DefaultLimits(), cfg.Limits())
	assert.Equal(t, "0 3 * * *", cfg.RetentionSchedule)
	assert.Equal(t, 1, cfg.Retention().FreeDays)
	assert.Equal(t, 30, cfg.Retention().ProDays)
	assert.Equal(t, 1000, cfg.Retention().BatchSize)
	assert.Equal(t, 10*time.Minute, cfg.Worker().JobTimeout)
	assert.False(t, cfg.AdminEnabled())
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hookscope")
	t.Setenv("ADMIN_DATABASE_URL", "postgres://admin@localhost/hookscope")
	t.Setenv("PLAN_FREE_MAX_ENDPOINTS", "1")
	t.Setenv("PLAN_PRO_MAX_REQUESTS", "100000")
	t.Setenv("ADMIN_USERNAME", "ops")
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := NewConfig()
	require.NoError(t, err)

	limits := cfg.Limits()
	assert.Equal(t, int64(1), limits[domain.PlanFree].MaxEndpoints)
	assert.Equal(t, int64(100000), limits[domain.PlanPro].MaxRequestsPerMonth)
	assert.Equal(t, "postgres://admin@localhost/hookscope", cfg.AdminDatabaseUrl)
	assert.True(t, cfg.AdminEnabled())
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}},
		{"negative ceiling", map[string]string{"PLAN_FREE_MAX_ANALYSES": "-1"}},
		{"zero batch size", map[string]string{"RETENTION_BATCH_SIZE": "0"}},
		{"unknown storage provider", map[string]string{"STORAGE_PROVIDER": "gcs"}},
		{"r2 archive without bucket", map[string]string{
			"STORAGE_PROVIDER":          "r2",
			"RETENTION_ARCHIVE_ENABLED": "true",
			"R2_ACCOUNT_ID":             "acct",
			"R2_ACCESS_KEY_ID":          "key",
			"R2_SECRET_ACCESS_KEY":      "secret",
		}},
		{"admin user without password", map[string]string{"ADMIN_USERNAME": "ops"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/hookscope")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "WARN")

	logger.Info("dropped")
	logger.Warn("kept", "job_type", "request_retention")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "hookscope", record["service"])
	assert.Equal(t, "request_retention", record["job_type"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
	assert.Equal(t, slog.LevelError, parseLevel("Error"))
}
