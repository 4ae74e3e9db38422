package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  dsn: "root:pw@tcp(db:3306)/ledger?parseTime=True"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
business:
  high_risk_threshold: "7500.50"
  allow_overdraft: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "root:pw@tcp(db:3306)/ledger?parseTime=True", cfg.Database.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "guardian_alert", cfg.Kafka.Topic.GuardianAlert)
	assert.True(t, cfg.Business.AllowOverdraft)
	assert.True(t, cfg.Business.Threshold().Equal(decimal.RequireFromString("7500.50")))
	assert.Equal(t, 24*60, cfg.Business.ReviewTimeoutMinutes)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "from-file"
`)
	t.Setenv("LEDGER_DATABASE_DSN", "from-env")
	t.Setenv("LEDGER_BUSINESS_ALLOW_OVERDRAFT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.DSN)
	assert.True(t, cfg.Business.AllowOverdraft)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("LEDGER_DATABASE_DSN", "dsn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Business.AllowOverdraft)
	assert.True(t, cfg.Business.Threshold().Equal(decimal.RequireFromString("5000")))
}

func TestValidate(t *testing.T) {
	t.Run("missing dsn", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server:\n  port: 1\n"))
		assert.ErrorContains(t, err, "database.dsn")
	})

	t.Run("bad threshold", func(t *testing.T) {
		_, err := Load(writeConfig(t, "database:\n  dsn: x\nbusiness:\n  high_risk_threshold: lots\n"))
		assert.ErrorContains(t, err, "high_risk_threshold")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
