package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrendKind(t *testing.T) {
	for in, want := range map[string]TrendKind{
		"add":      TrendAdditive,
		"Additive": TrendAdditive,
		"none":     TrendNone,
		"":         TrendNone,
	} {
		got, err := ParseTrendKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTrendKind("mul")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseSeasonalKind(t *testing.T) {
	for in, want := range map[string]SeasonalKind{
		"add":            SeasonalAdditive,
		"mul":            SeasonalMultiplicative,
		"MULTIPLICATIVE": SeasonalMultiplicative,
		" none ":         SeasonalNone,
	} {
		got, err := ParseSeasonalKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSeasonalKind("log")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSmoothingConfig_Validate(t *testing.T) {
	cfg := DefaultSmoothingConfig()
	assert.NoError(t, cfg.Validate())

	// weights are not checked when they only seed the optimizer
	cfg.Alpha = 5
	assert.NoError(t, cfg.Validate())

	cfg.Optimize = false
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	// beta is ignored without a trend
	cfg = fixedConfig(TrendNone, SeasonalAdditive)
	cfg.Beta = 3
	assert.NoError(t, cfg.Validate())
}
