package api

import (
	"sync"
	"time"
)

type SecurityConfig struct {
	AuthFailureAlertLimit  int
	AuthFailureAlertWindow time.Duration
	TrustedProxyCIDRs      []string
}

func defaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AuthFailureAlertLimit:  8,
		AuthFailureAlertWindow: 2 * time.Minute,
	}
}

func normalizeSecurityConfig(cfg SecurityConfig) SecurityConfig {
	def := defaultSecurityConfig()
	if cfg.AuthFailureAlertLimit <= 0 {
		cfg.AuthFailureAlertLimit = def.AuthFailureAlertLimit
	}
	if cfg.AuthFailureAlertWindow <= 0 {
		cfg.AuthFailureAlertWindow = def.AuthFailureAlertWindow
	}
	if len(cfg.TrustedProxyCIDRs) > 0 {
		cfg.TrustedProxyCIDRs = append([]string{}, cfg.TrustedProxyCIDRs...)
	}
	return cfg
}

type windowCounter struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string]*windowBucket
}

type windowBucket struct {
	start time.Time
	count int
}

func newWindowCounter(window time.Duration) *windowCounter {
	return &windowCounter{
		window:  window,
		buckets: map[string]*windowBucket{},
	}
}

func (c *windowCounter) Inc(key string, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.buckets[key]
	if b == nil || now.Sub(b.start) >= c.window {
		b = &windowBucket{start: now, count: 0}
		c.buckets[key] = b
	}
	b.count++
	return b.count
}

func (c *windowCounter) Reset(key string) {
	c.mu.Lock()
	delete(c.buckets, key)
	c.mu.Unlock()
}
