// Package timeouts provides the timeout values used around database calls.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks
//   - Short: single-document reads (guard role lookup, detail page)
//   - Load: full collection reads (snapshots, JSON API)
//
// Live subscriptions are not bounded by these; they last as long as the
// request that owns them.
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values.
const (
	DefaultPing  = 2 * time.Second
	DefaultShort = 5 * time.Second
	DefaultLoad  = 15 * time.Second
)

var mu sync.RWMutex

var (
	ping  = DefaultPing
	short = DefaultShort
	load  = DefaultLoad
)

// Ping returns the timeout for connectivity checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for single-document reads.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Load returns the timeout for reading a whole collection.
func Load() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return load
}

// Config holds timeout values. Zero values are ignored.
type Config struct {
	Ping  time.Duration
	Short time.Duration
	Load  time.Duration
}

// Configure sets custom timeout values, keeping current values for zeros.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Load > 0 {
		load = cfg.Load
	}
}

// Reset restores the defaults. Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, load = DefaultPing, DefaultShort, DefaultLoad
}

// ConfigureFromEnv reads LEARNERDASH_TIMEOUT_PING, LEARNERDASH_TIMEOUT_SHORT
// and LEARNERDASH_TIMEOUT_LOAD (Go durations such as "3s"). Unset or invalid
// values keep the current setting. It returns how many were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()

	targets := []struct {
		env string
		dst *time.Duration
	}{
		{"LEARNERDASH_TIMEOUT_PING", &ping},
		{"LEARNERDASH_TIMEOUT_SHORT", &short},
		{"LEARNERDASH_TIMEOUT_LOAD", &load},
	}
	configured := 0
	for _, tg := range targets {
		v := os.Getenv(tg.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*tg.dst = d
			configured++
		}
	}
	return configured
}

// Current returns the active configuration, for startup logging.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Load: load}
}

// WithTimeout is context.WithTimeout whose cancel logs a warning when the
// deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Load(), h.Log, "users api")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
