package blockchain

import (
	"context"
	"time"
)

const (
	// ReceiptPollInterval is the delay between two receipt lookups
	ReceiptPollInterval = 2 * time.Second
)

// waitMined polls fetch until it succeeds or ctx is done.
// Lookup errors are expected while the transaction is pending and are not returned.
func waitMined[T any](ctx context.Context, interval time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := fetch(ctx)
		if err == nil {
			return res, nil
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
