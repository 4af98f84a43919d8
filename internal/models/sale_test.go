package models

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSaleWindow(t *testing.T) {
	const now = uint64(1_700_000_000)

	w := NewSaleWindow(now, DefaultStartOffset, DefaultDuration)

	assert.Equal(t, now+20, w.Start)
	assert.Equal(t, now+20+5184000, w.End)
	assert.Equal(t, w.Start+60*DayInSecs, w.End)
	assert.Less(t, w.Start, w.End)
}

func TestNewSaleWindow_DropsSubSecondOffsets(t *testing.T) {
	w := NewSaleWindow(100, 1500*time.Millisecond, 10*time.Second)

	assert.Equal(t, uint64(101), w.Start)
	assert.Equal(t, uint64(111), w.End)
}

func TestSaleWindow_Times(t *testing.T) {
	w := SaleWindow{Start: 0, End: DayInSecs}

	assert.Equal(t, time.Unix(0, 0).UTC(), w.StartTime())
	assert.Equal(t, 24*time.Hour, w.EndTime().Sub(w.StartTime()))
}

func TestDefaultSaleConfig(t *testing.T) {
	cfg := DefaultSaleConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Example Token", cfg.Name)
	assert.Equal(t, "ETK", cfg.Symbol)
	assert.Equal(t, uint8(18), cfg.Decimals)
	assert.Equal(t, int64(10), cfg.RateInt().Int64())
	assert.Equal(t, int64(20_000_000), cfg.TotalTokensForSale.Int64())
	assert.Equal(t, 60*24*time.Hour, cfg.Duration)
}

func TestSaleConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *SaleConfig)
	}{
		{"empty name", func(c *SaleConfig) { c.Name = "" }},
		{"empty symbol", func(c *SaleConfig) { c.Symbol = "" }},
		{"zero rate", func(c *SaleConfig) { c.Rate = decimal.Zero }},
		{"fractional rate", func(c *SaleConfig) { c.Rate = decimal.RequireFromString("2.5") }},
		{"nil total", func(c *SaleConfig) { c.TotalTokensForSale = nil }},
		{"zero total", func(c *SaleConfig) { c.TotalTokensForSale = big.NewInt(0) }},
		{"negative offset", func(c *SaleConfig) { c.StartOffset = -time.Second }},
		{"no duration", func(c *SaleConfig) { c.Duration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSaleConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaleConfig_LargeRate(t *testing.T) {
	cfg := DefaultSaleConfig()
	cfg.Rate = decimal.RequireFromString("1000000000000000000000000")

	require.NoError(t, cfg.Validate())
	expected, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	assert.Equal(t, 0, expected.Cmp(cfg.RateInt()))
}
