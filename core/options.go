package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || cfg.ServiceName != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.Webhook != (WebhookConfig{}) {
		layer["webhook"] = map[string]any{
			"signature_header":   cfg.Webhook.SignatureHeader,
			"signature_encoding": cfg.Webhook.SignatureEncoding,
			"signature_prefix":   cfg.Webhook.SignaturePrefix,
			"secret":             cfg.Webhook.Secret,
			"previous_secret":    cfg.Webhook.PreviousSecret,
			"burst_mode":         cfg.Webhook.BurstMode,
			"burst_window":       cfg.Webhook.BurstWindow,
		}
	}
	if includeZero || cfg.Queue != (QueueConfig{}) {
		layer["queue"] = map[string]any{
			"max_capacity":   cfg.Queue.MaxCapacity,
			"max_retries":    cfg.Queue.MaxRetries,
			"yield_interval": cfg.Queue.YieldInterval,
			"drain_deadline": cfg.Queue.DrainDeadline,
		}
	}
	if includeZero || cfg.Confidence.Threshold != 0 {
		layer["confidence"] = map[string]any{
			"threshold": cfg.Confidence.Threshold,
		}
	}
	if includeZero || cfg.History.MaxEntries != 0 {
		layer["history"] = map[string]any{
			"max_entries": cfg.History.MaxEntries,
		}
	}
	if includeZero || cfg.Platform != (PlatformConfig{}) {
		layer["platform"] = map[string]any{
			"endpoint":      cfg.Platform.Endpoint,
			"token_url":     cfg.Platform.TokenURL,
			"client_id":     cfg.Platform.ClientID,
			"client_secret": cfg.Platform.ClientSecret,
			"call_timeout":  cfg.Platform.CallTimeout,
		}
	}
	if includeZero || cfg.Archive.Enabled {
		layer["archive"] = map[string]any{
			"enabled": cfg.Archive.Enabled,
		}
	}
	return layer
}
