package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/wwatcher/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultTimeout           = 1800
	DefaultSamples           = 336
	DefaultPort              = 9900
	DefaultCheckpoint        = "/var/lib/wwatcher/checkpoint.db"
	DefaultLogLevel          = string(LogLevelInfo)
	DefaultHumidityDevice    = "/sys/bus/iio/devices/iio:device0"
	DefaultTemperatureDevice = "/sys/bus/iio/devices/iio:device1"
	DefaultPIDFile           = "/run/wwatcher.pid"

	defaultConfigFile = "/etc/wwatcher.toml"
	envPrefix         = "WWATCHER"
	configEnv         = envPrefix + "_CONFIG"
)

// ErrHelp is returned by Load when --help was requested.
var ErrHelp = pflag.ErrHelp

type Config struct {
	Timeout           int    `mapstructure:"timeout"`
	Samples           int    `mapstructure:"samples"`
	Port              int    `mapstructure:"port"`
	Checkpoint        string `mapstructure:"checkpoint"`
	LogLevel          string `mapstructure:"log_level"`
	HumidityDevice    string `mapstructure:"humidity_device"`
	TemperatureDevice string `mapstructure:"temperature_device"`
	StatusAddr        string `mapstructure:"status_addr"`
	PIDFile           string `mapstructure:"pid_file"`
}

// flag name -> viper key
var flagKeys = map[string]string{
	"timeout":            "timeout",
	"samples":            "samples",
	"port":               "port",
	"checkpoint":         "checkpoint",
	"log-level":          "log_level",
	"humidity-device":    "humidity_device",
	"temperature-device": "temperature_device",
	"status-addr":        "status_addr",
	"pid-file":           "pid_file",
}

// Load builds the configuration from defaults, the TOML config file,
// WWATCHER_* environment variables and the given command line arguments,
// in increasing order of precedence. args excludes the program name.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet("wwatcher", pflag.ContinueOnError)
	fs.Int("timeout", DefaultTimeout, "Sampling interval in seconds")
	fs.Int("samples", DefaultSamples, "Number of samples to retain")
	fs.Int("port", DefaultPort, "TCP port of the snapshot server")
	fs.String("checkpoint", DefaultCheckpoint, "Path of the checkpoint database")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("humidity-device", DefaultHumidityDevice, "IIO device directory of the humidity channel")
	fs.String("temperature-device", DefaultTemperatureDevice, "IIO device directory of the temperature channel")
	fs.String("status-addr", "", "Address of the HTTP status listener (disabled when empty)")
	fs.String("pid-file", DefaultPIDFile, "Path of the pid file (disabled when empty)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, errFactory.Wrap(errors.ErrParseFlags, err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	if path := os.Getenv(configEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigFile(defaultConfigFile)
	}
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrParseFlags, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, os.ErrNotExist)
}

// Validate checks the value ranges of a loaded configuration.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Timeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Timeout)
	}
	if c.Samples <= 0 {
		return errFactory.WithData(errors.ErrInvalidCapacity, c.Samples)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errFactory.WithData(errors.ErrInvalidPort, c.Port)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Checkpoint == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "checkpoint path must not be empty")
	}
	if c.HumidityDevice == "" || c.TemperatureDevice == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "sensor device paths must not be empty")
	}

	return nil
}
