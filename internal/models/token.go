package models

import "context"

// Token is a token already published on a network, as listed by the well-known service.
type Token struct {
	// Address is the contract address of the token
	Address string `json:"address"`
	// Name is the full name of the token
	Name string `json:"name"`
	// Symbol is the short symbol of the token (e.g., CTN, ETK)
	Symbol string `json:"symbol"`
	// Decimals is the number of decimals the token uses
	Decimals int `json:"decimals"`
	// Type is the token type (CBC20, CBC721, etc.)
	Type string `json:"type"`
	// Network is the network the token is on (xcb, xab)
	Network string `json:"network"`
	// UpdatedAt is the timestamp when the token info was last fetched
	UpdatedAt int64 `json:"updated_at"`
}

// TokenDirectory looks up tokens that already exist on the target network.
type TokenDirectory interface {
	// FindBySymbol returns the token with the given symbol, or nil when there is none.
	FindBySymbol(ctx context.Context, symbol string) (*Token, error)
}
