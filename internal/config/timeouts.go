package config

import (
	"os"
	"strconv"
	"time"

	"github.com/imamik/squadfleet/internal/util/retry"
)

// Timeouts holds retry and timeout settings for external calls.
// These values can be customized via environment variables.
type Timeouts struct {
	RetryMaxAttempts  int           // Maximum number of attempts per external call
	RetryInitialDelay time.Duration // Base delay of the exponential backoff
	RetryMaxDelay     time.Duration // Upper bound for a single backoff wait
	Request           time.Duration // Timeout for a single HTTP request
	TemplateSync      time.Duration // Timeout for a background template sync
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - SQUADFLEET_RETRY_MAX_ATTEMPTS (default: 5)
//   - SQUADFLEET_RETRY_INITIAL_DELAY (default: 500ms)
//   - SQUADFLEET_RETRY_MAX_DELAY (default: 30s)
//   - SQUADFLEET_TIMEOUT_REQUEST (default: 30s)
//   - SQUADFLEET_TIMEOUT_TEMPLATE_SYNC (default: 15s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		RetryMaxAttempts:  parseInt("SQUADFLEET_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("SQUADFLEET_RETRY_INITIAL_DELAY", 500*time.Millisecond),
		RetryMaxDelay:     parseDuration("SQUADFLEET_RETRY_MAX_DELAY", 30*time.Second),
		Request:           parseDuration("SQUADFLEET_TIMEOUT_REQUEST", 30*time.Second),
		TemplateSync:      parseDuration("SQUADFLEET_TIMEOUT_TEMPLATE_SYNC", 15*time.Second),
	}
}

// RetryOptions returns the backoff settings for external calls. MaxRetries
// counts retries after the first attempt.
func (t *Timeouts) RetryOptions() []retry.Option {
	retries := t.RetryMaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return []retry.Option{
		retry.WithMaxRetries(retries),
		retry.WithInitialDelay(t.RetryInitialDelay),
		retry.WithMaxDelay(t.RetryMaxDelay),
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
	if err != nil {
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
	if err != nil {
		return defaultVal
	}

	return i
}
