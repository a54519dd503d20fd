package cmd

import (
	"testing"

	"github.com/michaelpento.lv/ourbitrage/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"start", "estimate", "gasprice"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}

func TestPersistentFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("debug"))
}

func TestGasPriceRejectsInvalidConfig(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	cfg = config.DefaultConfig()
	cfg.Arbitrage.GasPriceUnitScale = config.NewBigInt(0)
	cfg.GasStation.URL = ""

	err := gasPriceCmd.RunE(gasPriceCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gas_price_unit_scale must be positive")
	assert.Contains(t, err.Error(), "gas_station url must be specified")
}
