// Package config loads node settings from flags, BATTLECHESS_* environment
// variables and <home>/config.toml, in that order of precedence.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the human-readable name of the chain.
	AppName = "BattleChess"

	// BinaryName is the name of the node binary.
	BinaryName = "battlechessd"

	// EnvPrefix is the environment variable prefix, e.g. BATTLECHESS_ABCI_ADDR.
	EnvPrefix = "BATTLECHESS"

	// ConfigFileName lives directly under the home directory.
	ConfigFileName = "config.toml"
)

// Keys double as flag names.
const (
	FlagHome          = "home"
	FlagABCIAddr      = "abci.addr"
	FlagABCITransport = "abci.transport"
	FlagLogLevel      = "log.level"
	FlagLogJSON       = "log.json"
	FlagMetricsAddr   = "metrics.addr"
)

const (
	DefaultHome        = ".battlechess"
	DefaultABCIAddr    = "tcp://127.0.0.1:26658"
	DefaultTransport   = "socket"
	DefaultLogLevel    = "info"
	DefaultMetricsAddr = ""
)

var keys = []string{FlagHome, FlagABCIAddr, FlagABCITransport, FlagLogLevel, FlagLogJSON, FlagMetricsAddr}

type Config struct {
	Home    string        `mapstructure:"home"`
	ABCI    ABCIConfig    `mapstructure:"abci"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ABCIConfig struct {
	Addr      string `mapstructure:"addr"`
	Transport string `mapstructure:"transport"` // socket|grpc
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type MetricsConfig struct {
	// Addr is the Prometheus listen address; empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// NewViper returns a viper instance with defaults and environment binding set up.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(FlagHome, DefaultHome)
	v.SetDefault(FlagABCIAddr, DefaultABCIAddr)
	v.SetDefault(FlagABCITransport, DefaultTransport)
	v.SetDefault(FlagLogLevel, DefaultLogLevel)
	v.SetDefault(FlagLogJSON, false)
	v.SetDefault(FlagMetricsAddr, DefaultMetricsAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// AddFlags registers every setting on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(FlagABCIAddr, DefaultABCIAddr, "ABCI listen address")
	fs.String(FlagABCITransport, DefaultTransport, "ABCI transport (socket|grpc)")
	fs.String(FlagLogLevel, DefaultLogLevel, "log level (trace|debug|info|warn|error)")
	fs.Bool(FlagLogJSON, false, "emit logs as JSON")
	fs.String(FlagMetricsAddr, DefaultMetricsAddr, "Prometheus listen address, e.g. :26660 (empty disables)")
}

// BindFlags makes explicitly set flags take precedence over env and file values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, k := range keys {
		f := fs.Lookup(k)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(k, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", k, err)
		}
	}
	return nil
}

// Load merges <home>/config.toml (if present) under flags and env, then validates.
func Load(v *viper.Viper) (Config, error) {
	path := filepath.Join(v.GetString(FlagHome), ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Home == "" {
		return fmt.Errorf("home must not be empty")
	}
	if c.ABCI.Addr == "" {
		return fmt.Errorf("abci.addr must not be empty")
	}
	switch c.ABCI.Transport {
	case "socket", "grpc":
	default:
		return fmt.Errorf("abci.transport must be socket or grpc, got %q", c.ABCI.Transport)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Logger builds the node logger writing to w.
func (c Config) Logger(w io.Writer) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	opts := []log.Option{log.LevelOption(lvl)}
	if c.Log.JSON {
		opts = append(opts, log.OutputJSONOption())
	} else {
		opts = append(opts, log.ColorOption(false))
	}
	return log.NewLogger(w, opts...), nil
}
