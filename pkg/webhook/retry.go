package webhook

import (
	"math"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// RetryConfig configures exponential-backoff retry behavior for webhook
// delivery.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the registry's default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      1 * time.Second,
		MaxDelay:          5 * time.Minute,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigFromManifest converts a manifest's declared RetryConfig into
// the dispatcher's form, falling back to DefaultRetryConfig for any field
// that is zero or fails to parse as a duration.
func RetryConfigFromManifest(cfg *types.RetryConfig) RetryConfig {
	out := DefaultRetryConfig()
	if cfg == nil {
		return out
	}
	if cfg.MaxAttempts > 0 {
		out.MaxAttempts = cfg.MaxAttempts
	}
	if d, err := time.ParseDuration(cfg.InitialDelay); err == nil && d > 0 {
		out.InitialDelay = d
	}
	if d, err := time.ParseDuration(cfg.MaxDelay); err == nil && d > 0 {
		out.MaxDelay = d
	}
	if cfg.Multiplier > 1.0 {
		out.BackoffMultiplier = cfg.Multiplier
	}
	return out
}

// RetryPolicy implements exponential backoff with a max delay ceiling.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy normalizes zero-valued fields to DefaultRetryConfig's
// values before returning the policy.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 1 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Minute
	}
	if config.BackoffMultiplier <= 1.0 {
		config.BackoffMultiplier = 2.0
	}
	return &RetryPolicy{config: config}
}

// ShouldRetry reports whether another attempt should be made given the
// number of attempts made so far and the error from the last one.
func (p *RetryPolicy) ShouldRetry(attempts int, err error) bool {
	if err == nil {
		return false
	}
	return attempts < p.config.MaxAttempts
}

// NextRetryDelay returns the backoff delay before the given attempt
// number.
func (p *RetryPolicy) NextRetryDelay(attempts int) time.Duration {
	if attempts <= 0 {
		return p.config.InitialDelay
	}
	delay := float64(p.config.InitialDelay) * math.Pow(p.config.BackoffMultiplier, float64(attempts-1))
	if delay > float64(p.config.MaxDelay) {
		return p.config.MaxDelay
	}
	return time.Duration(delay)
}

// NextRetryTime returns the wall-clock time of the next retry.
func (p *RetryPolicy) NextRetryTime(attempts int) time.Time {
	return time.Now().Add(p.NextRetryDelay(attempts))
}
