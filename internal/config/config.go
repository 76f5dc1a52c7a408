// Package config loads the settings of the mirror command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/daimatz/mirror/pkg/signature"
)

// EnvPrefix prefixes the environment variables that override the file,
// such as MIRROR_JMOD or MIRROR_LOG_LEVEL.
const EnvPrefix = "MIRROR"

// Config is the mirror command configuration.
type Config struct {
	// ClassPath lists class directories and jar files, searched in order
	// after the platform classes.
	ClassPath []string `mapstructure:"classpath"`
	// Jmod is the java.base jmod the platform classes come from.
	Jmod string `mapstructure:"jmod"`
	// Deny lists packages whose classes may not be mirrored.
	Deny               []string `mapstructure:"deny"`
	LogLevel           string   `mapstructure:"log_level"`
	SignatureCacheSize int      `mapstructure:"signature_cache_size"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"classpath": "classpath",
	"jmod":      "jmod",
	"deny":      "deny",
	"log-level": "log_level",
}

// Load reads the configuration. Values come, in increasing precedence,
// from defaults, the file, MIRROR_* environment variables and the flags
// that were set. file may be empty, in which case mirror.yaml is looked
// for in the working directory and is optional. flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("classpath", []string{})
	v.SetDefault("jmod", "")
	v.SetDefault("deny", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("signature_cache_size", signature.DefaultCacheSize)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("mirror")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Jmod == "" {
		cfg.Jmod = FindJmod()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level returns the parsed log level.
func (c *Config) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func (c *Config) validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.SignatureCacheSize <= 0 {
		return fmt.Errorf("signature_cache_size must be positive, got %d", c.SignatureCacheSize)
	}
	for _, p := range c.ClassPath {
		if p == "" {
			return fmt.Errorf("classpath has an empty entry")
		}
	}
	return nil
}

// jmodGlob is where distribution JDKs usually live.
var jmodGlob = "/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod"

// FindJmod locates java.base.jmod: $JAVA_BASE_JMOD, then
// $JAVA_HOME/jmods, then the usual system JDK locations. It returns "" if
// none exists.
func FindJmod() string {
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob(jmodGlob)
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
