// Package eventstore records which webhook events have already been handled.
package eventstore

import (
	"context"

	"farcaster-trader/internal/model"
)

// Store is an atomic check-and-set ledger of event keys.
type Store interface {
	// CheckAndMark records key and returns true if it was not present.
	// Concurrent calls with the same key yield exactly one true.
	CheckAndMark(ctx context.Context, key model.EventKey) (bool, error)
	Close() error
}
