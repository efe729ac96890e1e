package utils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultReconnectDelay is the pause between stream reconnect attempts.
const DefaultReconnectDelay = 5 * time.Second

// NewReconnectBackoff returns a fixed-delay policy that never gives up.
func NewReconnectBackoff(delay time.Duration) backoff.BackOff {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return backoff.NewConstantBackOff(delay)
}
