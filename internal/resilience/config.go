package resilience

import (
	"time"
)

// FromRetryConfig builds a RetryConfig from flat config values. Zero values
// keep the defaults.
func FromRetryConfig(maxAttempts, initialBackoffMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
		if cfg.InitialBackoff > cfg.MaxBackoff {
			cfg.MaxBackoff = cfg.InitialBackoff
		}
	}
	return cfg
}
