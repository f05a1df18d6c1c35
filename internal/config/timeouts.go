package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the poll cadence and retry bounds of the waiters.
// These values can be customized via environment variables.
type Timeouts struct {
	PollInterval        time.Duration // Delay between substantive state polls
	EmptyPollBackoff    time.Duration // Delay after an empty or not-found poll
	SpotPollInterval    time.Duration // Delay between spot request polls
	ExistenceRetries    int           // Not-found retries after a create
	ExistenceRetryDelay time.Duration // Delay between existence polls
	RetryMaxAttempts    int           // Maximum attempts for retried provider calls
	RetryInitialDelay   time.Duration // Initial delay between provider call retries
}

// DefaultTimeouts returns the built-in timings.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		PollInterval:        5 * time.Second,
		EmptyPollBackoff:    1 * time.Second,
		SpotPollInterval:    5 * time.Second,
		ExistenceRetries:    10,
		ExistenceRetryDelay: 1 * time.Second,
		RetryMaxAttempts:    5,
		RetryInitialDelay:   1 * time.Second,
	}
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - FLEET_TIMEOUT_POLL_INTERVAL (default: 5s)
//   - FLEET_TIMEOUT_EMPTY_POLL_BACKOFF (default: 1s)
//   - FLEET_TIMEOUT_SPOT_POLL_INTERVAL (default: 5s)
//   - FLEET_EXISTENCE_RETRIES (default: 10)
//   - FLEET_TIMEOUT_EXISTENCE_RETRY_DELAY (default: 1s)
//   - FLEET_RETRY_MAX_ATTEMPTS (default: 5)
//   - FLEET_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	d := DefaultTimeouts()
	return &Timeouts{
		PollInterval:        parseDuration("FLEET_TIMEOUT_POLL_INTERVAL", d.PollInterval),
		EmptyPollBackoff:    parseDuration("FLEET_TIMEOUT_EMPTY_POLL_BACKOFF", d.EmptyPollBackoff),
		SpotPollInterval:    parseDuration("FLEET_TIMEOUT_SPOT_POLL_INTERVAL", d.SpotPollInterval),
		ExistenceRetries:    parseInt("FLEET_EXISTENCE_RETRIES", d.ExistenceRetries),
		ExistenceRetryDelay: parseDuration("FLEET_TIMEOUT_EXISTENCE_RETRY_DELAY", d.ExistenceRetryDelay),
		RetryMaxAttempts:    parseInt("FLEET_RETRY_MAX_ATTEMPTS", d.RetryMaxAttempts),
		RetryInitialDelay:   parseDuration("FLEET_RETRY_INITIAL_DELAY", d.RetryInitialDelay),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}

	return i
}

// TestTimeouts returns short timings suitable for tests driven by a real clock.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		PollInterval:        10 * time.Millisecond,
		EmptyPollBackoff:    5 * time.Millisecond,
		SpotPollInterval:    10 * time.Millisecond,
		ExistenceRetries:    3,
		ExistenceRetryDelay: 5 * time.Millisecond,
		RetryMaxAttempts:    2,
		RetryInitialDelay:   5 * time.Millisecond,
	}
}
