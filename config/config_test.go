package config

import (
	"os"
	"path/filepath"
	"testing"

	"lending/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  environment: simulation
quote:
  origination_fee_percent: 1
  networks:
    - ethereum
fee_tiers:
  basic:
    receive_fee_percent: 0.5
`
	require.Nil(t, os.WriteFile(file, []byte(content), 0o600))

	var cfg core.Config
	require.Nil(t, Load(file, &cfg))

	assert.True(t, cfg.App.Simulated())
	assert.Equal(t, 0.5, cfg.Quote.TargetLTV)
	assert.Equal(t, 0.7, cfg.Quote.MarginCallLTV)
	assert.Equal(t, 0.8, cfg.Quote.LiquidationLTV)
	assert.True(t, cfg.Quote.Disbursable("ethereum"))
	assert.Equal(t, "0.005", cfg.Tier("gold").ReceiveFee().String())
	assert.Equal(t, "@every 1m", cfg.Workers.Timeout)
}
