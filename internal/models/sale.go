package models

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DayInSecs is the length of a day in seconds.
	DayInSecs = 86400
	// DefaultStartOffset delays the sale start past the block used as time reference.
	DefaultStartOffset = 20 * time.Second
	// DefaultDuration is the length of the sale.
	DefaultDuration = 60 * DayInSecs * time.Second
)

// SaleConfig holds the parameters threaded into the token factory and the sale controller.
type SaleConfig struct {
	// Name is the display name of the issued token.
	Name string
	// Symbol is the ticker of the issued token.
	Symbol string
	// Decimals is the token precision.
	Decimals uint8
	// Rate is the number of token units sold per base currency unit.
	Rate decimal.Decimal
	// TotalTokensForSale caps the tokens issued during the sale.
	TotalTokensForSale *big.Int
	// StartOffset is added to the current chain time to get the sale start.
	StartOffset time.Duration
	// Duration is the length of the sale window.
	Duration time.Duration
	// Wallet receives the sale proceeds. Empty means the second deployment account.
	Wallet string
}

// DefaultSaleConfig returns the parameters of the example token sale.
func DefaultSaleConfig() *SaleConfig {
	return &SaleConfig{
		Name:               "Example Token",
		Symbol:             "ETK",
		Decimals:           18,
		Rate:               decimal.NewFromInt(10),
		TotalTokensForSale: big.NewInt(20_000_000),
		StartOffset:        DefaultStartOffset,
		Duration:           DefaultDuration,
	}
}

// Validate checks the parameters can be passed to the sale controller.
func (s *SaleConfig) Validate() error {
	if s.Name == "" {
		return errors.New("token name is required")
	}
	if s.Symbol == "" {
		return errors.New("token symbol is required")
	}
	if !s.Rate.IsPositive() {
		return fmt.Errorf("rate must be positive, got %s", s.Rate)
	}
	if !s.Rate.IsInteger() {
		return fmt.Errorf("rate must be a whole number of token units, got %s", s.Rate)
	}
	if s.TotalTokensForSale == nil || s.TotalTokensForSale.Sign() <= 0 {
		return errors.New("total tokens for sale must be positive")
	}
	if s.StartOffset < 0 {
		return fmt.Errorf("start offset cannot be negative, got %s", s.StartOffset)
	}
	if s.Duration < time.Second {
		return fmt.Errorf("sale duration must be at least one second, got %s", s.Duration)
	}
	return nil
}

// RateInt returns the rate as the integer passed on-chain.
func (s *SaleConfig) RateInt() *big.Int {
	return s.Rate.BigInt()
}

// SaleWindow is the opening and closing time of the sale, in Unix seconds.
type SaleWindow struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// NewSaleWindow computes the window for a sale whose reference time is now.
func NewSaleWindow(now uint64, startOffset, duration time.Duration) SaleWindow {
	start := now + uint64(startOffset/time.Second)
	return SaleWindow{
		Start: start,
		End:   start + uint64(duration/time.Second),
	}
}

func (w SaleWindow) StartTime() time.Time { return time.Unix(int64(w.Start), 0).UTC() }
func (w SaleWindow) EndTime() time.Time   { return time.Unix(int64(w.End), 0).UTC() }
