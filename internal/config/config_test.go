package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	os.Unsetenv("SCAN_MIN_ANNUAL_RETURN_PCT")
	os.Unsetenv("SCAN_REPORT_EXPIRATIONS")

	cfg := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "put", cfg.Scan.Side)
	assert.Equal(t, 8, cfg.Scan.ReportExpirations)
	assert.Equal(t, 10, cfg.Scan.SeekExpirations)
	assert.Equal(t, 15.0, cfg.Scan.MinAnnualReturnPct)
	assert.False(t, cfg.Cache.Enabled)
}

func TestEnvOverridesDefaults(t *testing.T) {
	os.Setenv("SCAN_MIN_ANNUAL_RETURN_PCT", "22.5")
	defer os.Unsetenv("SCAN_MIN_ANNUAL_RETURN_PCT")
	os.Setenv("PROVIDER_PACING_MS", "500")
	defer os.Unsetenv("PROVIDER_PACING_MS")

	cfg := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, 22.5, cfg.Scan.MinAnnualReturnPct)
	assert.Equal(t, 500, cfg.Provider.PacingMs)
	assert.Equal(t, "500ms", cfg.Pacing().String())
}

func TestYAMLOverridesEnv(t *testing.T) {
	os.Setenv("SCAN_SIDE", "put")
	defer os.Unsetenv("SCAN_SIDE")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
port: "9090"
scan:
  side: call
  seek_expirations: 4
  min_annual_return_pct: 30
cache:
  enabled: true
  chain_ttl_sec: 60
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg := LoadFile(path)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "call", cfg.Scan.Side)
	assert.Equal(t, 4, cfg.Scan.SeekExpirations)
	assert.Equal(t, 30.0, cfg.Scan.MinAnnualReturnPct)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "1m0s", cfg.ChainTTL().String())
}

func TestPartialYAMLKeepsUntouchedDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  horizon_months: 6\n"), 0o644))

	cfg := LoadFile(path)

	assert.Equal(t, 6, cfg.Scan.HorizonMonths)
	assert.Equal(t, 8, cfg.Scan.ReportExpirations) // untouched default survives
	assert.Equal(t, "8080", cfg.Port)
}
