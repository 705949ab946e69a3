package core

import (
	"fmt"
	"strings"
	"time"
)

type WebhookConfig struct {
	SignatureHeader   string `koanf:"signature_header" mapstructure:"signature_header"`
	SignatureEncoding string `koanf:"signature_encoding" mapstructure:"signature_encoding"`
	SignaturePrefix   string `koanf:"signature_prefix" mapstructure:"signature_prefix"`
	Secret            string `koanf:"secret" mapstructure:"secret"`
	PreviousSecret    string `koanf:"previous_secret" mapstructure:"previous_secret"`
	// BurstMode of "coalesce" collapses duplicate deliveries for the
	// same sender and item inside BurstWindow. Empty or "none" disables
	// burst handling.
	BurstMode   string        `koanf:"burst_mode" mapstructure:"burst_mode"`
	BurstWindow time.Duration `koanf:"burst_window" mapstructure:"burst_window"`
}

type QueueConfig struct {
	// MaxCapacity of 0 leaves the queue unbounded.
	MaxCapacity   int           `koanf:"max_capacity" mapstructure:"max_capacity"`
	MaxRetries    int           `koanf:"max_retries" mapstructure:"max_retries"`
	YieldInterval time.Duration `koanf:"yield_interval" mapstructure:"yield_interval"`
	DrainDeadline time.Duration `koanf:"drain_deadline" mapstructure:"drain_deadline"`
}

type ConfidenceConfig struct {
	Threshold float64 `koanf:"threshold" mapstructure:"threshold"`
}

type HistoryConfig struct {
	MaxEntries int `koanf:"max_entries" mapstructure:"max_entries"`
}

type PlatformConfig struct {
	Endpoint     string        `koanf:"endpoint" mapstructure:"endpoint"`
	TokenURL     string        `koanf:"token_url" mapstructure:"token_url"`
	ClientID     string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string        `koanf:"client_secret" mapstructure:"client_secret"`
	CallTimeout  time.Duration `koanf:"call_timeout" mapstructure:"call_timeout"`
}

type ArchiveConfig struct {
	Enabled bool `koanf:"enabled" mapstructure:"enabled"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	Webhook     WebhookConfig    `koanf:"webhook" mapstructure:"webhook"`
	Queue       QueueConfig      `koanf:"queue" mapstructure:"queue"`
	Confidence  ConfidenceConfig `koanf:"confidence" mapstructure:"confidence"`
	History     HistoryConfig    `koanf:"history" mapstructure:"history"`
	Platform    PlatformConfig   `koanf:"platform" mapstructure:"platform"`
	Archive     ArchiveConfig    `koanf:"archive" mapstructure:"archive"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "autopilot",
		Webhook: WebhookConfig{
			SignatureHeader:   "X-Autopilot-Signature",
			SignatureEncoding: "hex",
		},
		Queue: QueueConfig{
			MaxCapacity:   1024,
			MaxRetries:    3,
			YieldInterval: 100 * time.Millisecond,
			DrainDeadline: 30 * time.Second,
		},
		Confidence: ConfidenceConfig{Threshold: 0.75},
		History:    HistoryConfig{MaxEntries: 1000},
		Platform:   PlatformConfig{CallTimeout: 10 * time.Second},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Queue.MaxCapacity < 0 {
		return fmt.Errorf("core: queue max_capacity must not be negative")
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("core: queue max_retries must not be negative")
	}
	if c.Confidence.Threshold < 0 || c.Confidence.Threshold > 1 {
		return fmt.Errorf("core: confidence threshold must be within [0, 1]")
	}
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("core: history max_entries must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Webhook.SignatureEncoding)) {
	case "", "hex", "base64":
	default:
		return fmt.Errorf("core: webhook signature_encoding must be hex or base64")
	}
	switch strings.ToLower(strings.TrimSpace(c.Webhook.BurstMode)) {
	case "", "none", "coalesce":
	default:
		return fmt.Errorf("core: webhook burst_mode must be none or coalesce")
	}
	if c.Webhook.BurstWindow < 0 {
		return fmt.Errorf("core: webhook burst_window must not be negative")
	}
	return nil
}
