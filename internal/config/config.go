// Package config loads formrules settings from defaults, an optional YAML
// file and FORMRULES_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix namespaces environment overrides, e.g. FORMRULES_LOG_LEVEL.
const EnvPrefix = "FORMRULES"

// Log formats accepted by LogConfig.Format.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PollConfig configures the import progress poller.
type PollConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Interval time.Duration `mapstructure:"interval"`
}

// StorageConfig configures submission persistence.
type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Config is the resolved configuration.
type Config struct {
	Log          LogConfig     `mapstructure:"log"`
	Locale       string        `mapstructure:"locale"`
	MessagesFile string        `mapstructure:"messages_file"`
	Strict       bool          `mapstructure:"strict"`
	ClearHidden  bool          `mapstructure:"clear_hidden"`
	Poll         PollConfig    `mapstructure:"poll"`
	Storage      StorageConfig `mapstructure:"storage"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", LogFormatConsole)
	v.SetDefault("locale", "en")
	v.SetDefault("messages_file", "")
	v.SetDefault("strict", false)
	v.SetDefault("clear_hidden", false)
	v.SetDefault("poll.endpoint", "http://localhost:8069")
	v.SetDefault("poll.interval", "5s")
	v.SetDefault("storage.sqlite_path", "formrules.db")
}

// Load resolves configuration on v. An explicit file must exist; without
// one, .formrules.yaml is looked up in the working and home directories and
// may be absent.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".formrules")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Log.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("config: log.format must be %q or %q, got %q", LogFormatJSON, LogFormatConsole, c.Log.Format)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config: poll.interval must be positive, got %s", c.Poll.Interval)
	}
	return nil
}
