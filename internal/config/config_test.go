package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCO2FactorDefaultIsFlagged(t *testing.T) {
	t.Setenv("CO2_FACTOR_KG_PER_KWH", "")
	require.NoError(t, Load())

	assert.False(t, CO2FactorSet())
	assert.Equal(t, 0.5, CO2Factor())
}

func TestCO2FactorFromEnvironment(t *testing.T) {
	t.Setenv("CO2_FACTOR_KG_PER_KWH", "0.42")
	require.NoError(t, Load())

	assert.True(t, CO2FactorSet())
	assert.Equal(t, 0.42, CO2Factor())
}
