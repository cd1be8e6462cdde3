package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/pricing"
)

func TestLoadCreatesTemplate(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)

	assert.Equal(t, 0, cfg.Engine.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(dir, "optpricer.db"), cfg.Store.Path)
	assert.Equal(t, pricing.DefaultMeasures, cfg.DefaultMeasures())
	assert.Equal(t, 4, cfg.UI.Precision)

	// The template must load cleanly on the next run.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[engine]
workers = 3
measures = ["price", "vol"]

[market]
default_rate = 0.01

[store]
path = "/tmp/prices.db"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, []pricing.Measure{pricing.MeasurePrice, pricing.MeasureVol}, cfg.DefaultMeasures())
	assert.Equal(t, 0.01, cfg.Market.DefaultRate)
	assert.Equal(t, "/tmp/prices.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPTPRICER_WORKERS", "8")
	t.Setenv("OPTPRICER_DB", "/data/md.db")
	t.Setenv("OPTPRICER_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, "/data/md.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.LogConfig().Level)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	bad := *cfg
	bad.Logging.Level = "loud"
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid)

	bad = *cfg
	bad.Engine.Workers = -1
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid)

	bad = *cfg
	bad.Engine.Measures = []string{"theta"}
	assert.ErrorIs(t, bad.Validate(), apperrors.ErrConfigInvalid)
}
