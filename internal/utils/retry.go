package utils

import (
	"context"
	"time"
)

// RetryPolicy bounds how often and how patiently an operation is retried.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Retry runs fn until it succeeds, the attempts are used up or ctx ends. The
// delay doubles after every failure. The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.Delay

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}
