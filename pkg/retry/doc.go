// Package retry provides simple exponential backoff retry logic for
// transient failures.
//
// It is used for connection establishment only. Protocol-level
// degradations (for example a server without client-side cache tracking)
// are explicitly never retried; callers decide what is retryable by
// wrapping permanent failures with NonRetryable.
//
// Basic usage:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Ping(ctx)
//	})
//
// All operations respect context cancellation, both during the attempt
// and during the backoff delay.
package retry
