// Package config loads runtime settings from defaults, an optional YAML
// file, PUBLICIP_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jsirianni/publicip/internal/connectivity"
	"github.com/jsirianni/publicip/publicip"
)

const envPrefix = "PUBLICIP"

// Config is the runtime configuration.
type Config struct {
	Interval      time.Duration `mapstructure:"interval"`
	IPv4URL       string        `mapstructure:"ipv4-url"`
	IPv6URL       string        `mapstructure:"ipv6-url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user-agent"`
	LogLevel      string        `mapstructure:"log-level"`
	ProbeAddress  string        `mapstructure:"probe-address"`
	ProbeInterval time.Duration `mapstructure:"probe-interval"`
	Settle        time.Duration `mapstructure:"settle"`
	DNS           `mapstructure:",squash"`
	ConfigPath    string        `mapstructure:"-"`
}

// DNS configures the optional Cloudflare record sync.
type DNS struct {
	Token   string `mapstructure:"dns-token"`
	Zone    string `mapstructure:"dns-zone"`
	Name    string `mapstructure:"dns-name"`
	TTL     int    `mapstructure:"dns-ttl"`
	Proxied bool   `mapstructure:"dns-proxied"`
}

// Enabled reports whether any DNS sync setting was given.
func (d DNS) Enabled() bool {
	return d.Token != "" || d.Zone != "" || d.Name != ""
}

// IntervalSeconds returns the refresh interval in whole seconds.
func (c Config) IntervalSeconds() int {
	return int(c.Interval / time.Second)
}

// DefaultPath is $HOME/.config/publicip/config.yml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yml"
	}
	return filepath.Join(home, ".config", "publicip", "config.yml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", time.Duration(publicip.DefaultIntervalSeconds)*time.Second)
	v.SetDefault("ipv4-url", publicip.DefaultIPv4URL)
	v.SetDefault("ipv6-url", publicip.DefaultIPv6URL)
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("user-agent", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("probe-address", connectivity.DefaultProbeAddress)
	v.SetDefault("probe-interval", connectivity.DefaultPollInterval)
	v.SetDefault("settle", connectivity.DefaultSettle)
	v.SetDefault("dns-token", "")
	v.SetDefault("dns-zone", "")
	v.SetDefault("dns-name", "")
	v.SetDefault("dns-ttl", 1)
	v.SetDefault("dns-proxied", false)
}

// Load reads configuration. configPath may be empty, in which case
// DefaultPath is used if it exists. flags, when non-nil, override every other
// source for the flags the user set.
func Load(configPath string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return cfg, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(DefaultPath())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if configPath != "" {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Interval < time.Second {
		return fmt.Errorf("invalid interval %s: must be at least 1s", c.Interval)
	}
	for name, d := range map[string]time.Duration{
		"timeout":        c.Timeout,
		"probe-interval": c.ProbeInterval,
		"settle":         c.Settle,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s %s: must be positive", name, d)
		}
	}
	for name, raw := range map[string]string{"ipv4-url": c.IPv4URL, "ipv6-url": c.IPv6URL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
	}
	if strings.TrimSpace(c.ProbeAddress) == "" {
		return errors.New("probe-address is required")
	}
	if c.DNS.Enabled() {
		if c.DNS.Token == "" || c.DNS.Zone == "" || c.DNS.Name == "" {
			return errors.New("dns sync needs dns-token, dns-zone and dns-name")
		}
		if c.DNS.TTL < 0 {
			return fmt.Errorf("invalid dns-ttl %d: must be >= 0 (1 for auto)", c.DNS.TTL)
		}
	}
	return nil
}
