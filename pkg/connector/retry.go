package connector

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 1 * time.Second
)

// withRetry runs op with exponential backoff: 3 attempts, 1 s base delay
// doubling each attempt. The last error is surfaced when all attempts
// fail. Only the network-calling connectors use this; the orchestrator
// never retries on top of it.
func withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryBaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, retryAttempts-1), ctx))
}
