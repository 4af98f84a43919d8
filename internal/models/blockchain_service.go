package models

import (
	"context"
	"math/big"
)

// DeployReceipt describes a mined contract creation.
type DeployReceipt struct {
	Address     string
	TxHash      string
	BlockNumber uint64
}

// ChainBackend is the deployment capability of one blockchain.
type ChainBackend interface {
	// Chain returns the chain family ("core" or "ethereum").
	Chain() string
	// NetworkID returns the network (chain) id the backend is connected to.
	NetworkID() *big.Int
	// Accounts returns the accounts available for deployment. The first one deploys.
	Accounts(ctx context.Context) ([]string, error)
	// LatestTimestamp returns the timestamp of the latest block, in Unix seconds.
	LatestTimestamp(ctx context.Context) (uint64, error)
	// Deploy publishes blueprint with the given constructor args and blocks until it is mined.
	Deploy(ctx context.Context, from string, blueprint *Blueprint, args ...interface{}) (*DeployReceipt, error)
	Close() error
}
