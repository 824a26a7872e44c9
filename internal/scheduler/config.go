package scheduler

import (
	"time"

	"github.com/smallbiznis/notemart/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled         bool
	RunInterval     time.Duration
	BatchSize       int
	PendingOrderTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		RunInterval:     time.Minute,
		BatchSize:       50,
		PendingOrderTTL: 24 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:         cfg.Scheduler.Enabled,
		RunInterval:     cfg.Scheduler.RunInterval,
		BatchSize:       cfg.Scheduler.BatchSize,
		PendingOrderTTL: cfg.Scheduler.PendingOrderTTL,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PendingOrderTTL <= 0 {
		c.PendingOrderTTL = defaults.PendingOrderTTL
	}
	return c
}
