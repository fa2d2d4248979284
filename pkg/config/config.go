// Package config loads model settings from defaults, an optional YAML file
// and CLABJECT_ environment variables, in that order of increasing
// precedence, and turns them into clabject options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	clabject "github.com/goliatone/go-clabject"
	"github.com/goliatone/go-clabject/pkg/activity"
	"github.com/goliatone/go-clabject/pkg/zaplog"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix marks environment variables read by Load. A double underscore
// separates nested keys: CLABJECT_ACTIVITY__CHANNEL sets activity.channel.
const EnvPrefix = "CLABJECT_"

// Config holds settings that map onto clabject options.
type Config struct {
	RootName string         `koanf:"root_name"`
	Engine   string         `koanf:"engine"`
	LogLevel string         `koanf:"log_level"`
	Cache    bool           `koanf:"cache"`
	Activity ActivityConfig `koanf:"activity"`
}

// ActivityConfig mirrors activity.Config.
type ActivityConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Channel  string `koanf:"channel"`
	ActorID  string `koanf:"actor_id"`
	TenantID string `koanf:"tenant_id"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() map[string]any {
	return map[string]any{
		"root_name":         "Root",
		"engine":            clabject.EngineExpr,
		"log_level":         "info",
		"cache":             true,
		"activity.enabled":  true,
		"activity.channel":  activity.DefaultChannel,
		"activity.actor_id": "",
	}
}

// Load reads the configuration. An empty path skips the file; a missing
// file at a given path is an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps CLABJECT_ACTIVITY__ACTOR_ID to activity.actor_id.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(name, "__", ".")
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(strings.TrimSpace(c.Engine)) {
	case "", clabject.EngineExpr, clabject.EngineCEL, clabject.EngineJS:
	default:
		errs = append(errs, fmt.Errorf("config: unknown engine %q", c.Engine))
	}
	if _, err := zaplog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("config: log_level: %w", err))
	}
	if strings.TrimSpace(c.RootName) == "" {
		errs = append(errs, errors.New("config: root_name must not be empty"))
	}
	return errors.Join(errs...)
}

// Options converts the configuration into model options. base receives
// model events at the configured level; nil disables logging.
func (c Config) Options(base *zap.Logger) ([]clabject.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := []clabject.Option{
		clabject.WithRootName(c.RootName),
		clabject.WithEngine(c.Engine),
		clabject.WithActivityConfig(activity.Config{
			Enabled:  c.Activity.Enabled,
			Channel:  c.Activity.Channel,
			ActorID:  c.Activity.ActorID,
			TenantID: c.Activity.TenantID,
		}),
	}
	if c.Cache {
		opts = append(opts, clabject.WithProgramCache(clabject.NewMemoryProgramCache()))
	}
	if base != nil {
		level, _ := zaplog.ParseLevel(c.LogLevel)
		opts = append(opts, clabject.WithLogger(zaplog.New(base, zaplog.WithLevel(level))))
	}
	return opts, nil
}
