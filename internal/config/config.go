// Package config loads the notequiz configuration from a file, NOTEQUIZ_* environment
// variables and command line flags.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"notequiz"
)

// EnvPrefix prefixes every environment variable, e.g. NOTEQUIZ_STORE_PATH.
const EnvPrefix = "NOTEQUIZ"

// New creates a viper instance with defaults, environment binding and the optional config file.
func New(path string) (*viper.Viper, error) {
	v := viper.New()

	defaults := notequiz.DefaultConfig()
	v.SetDefault("store.engine", defaults.Store.Engine)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("scheduler.low_rate_limit", defaults.Scheduler.LowRateLimit)
	v.SetDefault("scheduler.max_attempts", defaults.Scheduler.MaxAttempts)
	v.SetDefault("scheduler.max_duration", defaults.Scheduler.MaxDuration)
	v.SetDefault("verbose", false)
	v.SetDefault("log_dir", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}
	return v, nil
}

// Decode builds the configuration. OPENAI_API_KEY is used when no key is configured.
func Decode(v *viper.Viper) (notequiz.Config, error) {
	var cfg notequiz.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return notequiz.Config{}, errors.Wrap(err, "failed to decode config")
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// Load is New followed by Decode.
func Load(path string) (notequiz.Config, error) {
	v, err := New(path)
	if err != nil {
		return notequiz.Config{}, err
	}
	return Decode(v)
}
