package pipeline

import (
	"time"

	"ai-counselor-be/internal/config"
)

type Config struct {
	StepTimeout      time.Duration // Per attempt of analyze and generate-response
	AlertTimeout     time.Duration // Whole risk-evaluate step, retries included
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	PersistAttempts  int
	LockTTL          time.Duration
	HistoryLimit     int
	RecoveryInterval time.Duration
	PollInterval     time.Duration // How often Await re-reads the run as a safety net
	Goals            []string
	SystemPrompt     string
}

func ConfigFrom(c config.PipelineConfig) Config {
	return Config{
		StepTimeout:      c.StepTimeout,
		AlertTimeout:     c.AlertTimeout,
		MaxAttempts:      c.MaxAttempts,
		InitialBackoff:   c.InitialBackoff,
		MaxBackoff:       c.MaxBackoff,
		PersistAttempts:  c.PersistAttempts,
		LockTTL:          c.LockTTL,
		HistoryLimit:     c.HistoryLimit,
		RecoveryInterval: c.RecoveryInterval,
		PollInterval:     time.Second,
		Goals:            c.Goals,
		SystemPrompt:     c.SystemPrompt,
	}
}

func (c Config) withDefaults() Config {
	if c.StepTimeout <= 0 {
		c.StepTimeout = 30 * time.Second
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.PersistAttempts <= 0 {
		c.PersistAttempts = 5
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 3 * time.Minute
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 10
	}
	if c.RecoveryInterval <= 0 {
		c.RecoveryInterval = time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}
