package helper

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/logger"
)

// ErrRetriesExhausted is matched by errors.Is for any error returned by Retry after all attempts failed.
var ErrRetriesExhausted = errors.New("all retry attempts exhausted")

// RetriesExhaustedError is returned by Retry when every attempt failed with a retryable error.
type RetriesExhaustedError struct {
	Name     string
	Attempts int
	Err      error // the error returned by the final attempt.
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%v failed after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// RetryConfig controls a bounded, fixed-delay retry loop.
type RetryConfig struct {
	Log         logger.Logger
	Name        string                                           // used in log messages and errors.
	MaxAttempts int                                              // total attempts including the first one.
	Delay       time.Duration                                    // pause after every failed attempt.
	IsRetryable func(err error) bool                             // nil means every error is retried.
	Sleep       func(d time.Duration)                            // defaults to time.Sleep.
	OnRetry     func(attempt int, err error, wait time.Duration) // optional hook called before each pause.
}

// Retry calls fn until it succeeds, returns an error that IsRetryable rejects, or MaxAttempts have been used.
// fn receives the 1-based attempt number.
// The pause happens after every failed attempt, including the last, so callers always see one pause per failure.
// Errors that are not retryable are returned unchanged.
// When attempts run out a *RetriesExhaustedError is returned.
func Retry(cfg *RetryConfig, fn func(attempt int) error) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if cfg.IsRetryable != nil && !cfg.IsRetryable(err) { // if we should fail fast...
			return err
		}
		lastErr = err
		if cfg.Log != nil {
			cfg.Log.Error(cfg.Name, " failed: ", err)
			if attempt < maxAttempts {
				cfg.Log.Info(fmt.Sprintf("Retrying %v (%d/%d) in %v...", cfg.Name, attempt+1, maxAttempts, cfg.Delay))
			} else {
				cfg.Log.Info(fmt.Sprintf("No attempts remaining for %v, waiting %v before giving up", cfg.Name, cfg.Delay))
			}
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, cfg.Delay)
		}
		sleep(cfg.Delay)
	}
	return &RetriesExhaustedError{Name: cfg.Name, Attempts: maxAttempts, Err: lastErr}
}
