// Package config supplies the ambient configuration surface for an
// ObjectEngine embedder: log level and the wall-clock skew tolerance
// used by vertex validation, loaded the way babble's own config package
// loads node-tuning values — a plain struct with mapstructure tags,
// populated from defaults and optionally overlaid by a config file via
// viper.
package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default configuration values.
const (
	// DefaultLogLevel matches babble's own default verbosity.
	DefaultLogLevel = "debug"

	// DefaultMaxClockSkewMillis bounds how far into the future a vertex's
	// claimed timestamp may sit relative to the validator's own clock
	// before ValidateVertex rejects it as a future timestamp (spec
	// §4.4's wall-clock-now rule, loosened from "strictly now" to a
	// tolerance band, since real peers never share exactly the same
	// clock).
	DefaultMaxClockSkewMillis = 2000

	// DefaultConfigName is the base filename (without extension) viper
	// looks for in the directory passed to Load.
	DefaultConfigName = "drp"
)

// Config holds the tunable, non-domain-specific knobs an embedder may
// override; everything the engine itself needs beyond this lives in
// engine.Options, which is wired directly by the embedding program
// rather than sourced from a file.
type Config struct {
	// LogLevel determines the chattiness of the engine's own logger.
	LogLevel string `mapstructure:"log"`

	// MaxClockSkewMillis is the tolerance window applied to spec §4.4's
	// "self.timestamp must not exceed wall-clock-now" validation rule.
	MaxClockSkewMillis int64 `mapstructure:"max-clock-skew-millis"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a Config populated entirely with defaults.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:           DefaultLogLevel,
		MaxClockSkewMillis: DefaultMaxClockSkewMillis,
	}
}

// Load overlays a config file (named DefaultConfigName, located in dir,
// any format viper supports: toml/json/yaml) onto the defaults. A
// missing file is not an error; any other read or decode failure is.
func Load(dir string) (*Config, error) {
	c := NewDefaultConfig()

	v := viper.New()
	v.SetConfigName(DefaultConfigName)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading %s: %w", DefaultConfigName, err)
		}
		return c, nil
	}

	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config: unmarshaling %s: %w", DefaultConfigName, err)
	}

	return c, nil
}

// Logger returns a formatted logrus Entry, prefixed "drp", built lazily
// from LogLevel (grounded on config.Config.Logger's prefixed-formatter
// pattern).
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "drp")
}

// LogLevel parses a string into a logrus level, defaulting to Debug for
// any unrecognized value.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
