package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/process"
)

const (
	// EnvPrefix prefixes every environment override, e.g. HOSTINFO_INTERVAL.
	EnvPrefix = "HOSTINFO"
	// GlobalConfigDir is the directory of the per-user config file, under $HOME.
	GlobalConfigDir = ".config/hostinfo"
	// GlobalConfigFile is the per-user config file name.
	GlobalConfigFile = "config.yaml"
	// DotEnvFile is loaded from the working directory when present.
	DotEnvFile = ".env"
)

// Config carries runtime options for hostinfo.
type Config struct {
	Interval     time.Duration `yaml:"interval"`
	Sort         string        `yaml:"sort"`
	Limit        int           `yaml:"limit"`
	Filter       string        `yaml:"filter"`
	JSONStream   bool          `yaml:"json_stream"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	Thermal      bool          `yaml:"thermal"`
	Parallel     bool          `yaml:"parallel"`
	LogFile      string        `yaml:"log_file"`
}

func Default() Config {
	return Config{
		Interval:     2 * time.Second,
		Sort:         string(process.SortCPU),
		Limit:        10,
		Filter:       "",
		JSONStream:   false,
		ProbeTimeout: 2 * time.Second,
		Thermal:      true,
		Parallel:     false,
		LogFile:      "",
	}
}

// Options selects where Load reads from. Zero values use the defaults.
type Options struct {
	// ConfigFile is an explicit config path; it must exist when set.
	ConfigFile string
	// EnvFile overrides DotEnvFile.
	EnvFile string
	// Flags are bound last, so flags the user set win over everything else.
	Flags *pflag.FlagSet
}

// keys lists every config key; flag names use dashes in place of underscores.
var keys = []string{
	"interval", "sort", "limit", "filter", "json_stream",
	"probe_timeout", "thermal", "parallel", "log_file",
}

// Load layers defaults, the YAML config file, the .env file, HOSTINFO_*
// variables and flags, in increasing precedence, and validates the result.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DotEnvFile
	}
	// godotenv never overrides variables that are already set, which keeps the
	// real environment above the .env file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, hierrors.Wrap(err, hierrors.Config, "failed to read "+envFile)
	}

	v := viper.New()
	def := Default()
	v.SetDefault("interval", def.Interval.String())
	v.SetDefault("sort", def.Sort)
	v.SetDefault("limit", def.Limit)
	v.SetDefault("filter", def.Filter)
	v.SetDefault("json_stream", def.JSONStream)
	v.SetDefault("probe_timeout", def.ProbeTimeout.String())
	v.SetDefault("thermal", def.Thermal)
	v.SetDefault("parallel", def.Parallel)
	v.SetDefault("log_file", def.LogFile)

	path, err := findConfigFile(opts.ConfigFile)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, hierrors.Wrap(err, hierrors.Config, "failed to read config file "+path).
				WithSuggestion("Check the YAML syntax")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for _, key := range keys {
			if f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, hierrors.Wrap(err, hierrors.Config, "failed to bind flag --"+f.Name)
				}
			}
		}
	}

	cfg := Config{
		Sort:       v.GetString("sort"),
		Limit:      v.GetInt("limit"),
		Filter:     v.GetString("filter"),
		JSONStream: v.GetBool("json_stream"),
		Thermal:    v.GetBool("thermal"),
		Parallel:   v.GetBool("parallel"),
		LogFile:    v.GetString("log_file"),
	}
	if cfg.Interval, err = parseDuration("interval", v.GetString("interval")); err != nil {
		return Config{}, err
	}
	if cfg.ProbeTimeout, err = parseDuration("probe_timeout", v.GetString("probe_timeout")); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parseDuration accepts Go durations ("500ms", "2s") and bare numbers, which
// are read as seconds.
func parseDuration(key, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(s + "s"); err == nil {
		return d, nil
	}
	return 0, hierrors.New(hierrors.Config,
		fmt.Sprintf("invalid %s %q", key, s),
		"use a duration such as 2s or 500ms, or a number of seconds")
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", hierrors.Wrap(err, hierrors.Config, "config file not found: "+explicit).
				WithSuggestion("Check the path passed to --config")
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", nil
	}
	global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// Validate checks invariants the refresh loop and ranker rely on.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return hierrors.New(hierrors.Config, "interval must be positive", "use a value such as --interval 2s")
	}
	if c.Limit < 1 {
		return hierrors.New(hierrors.Config, fmt.Sprintf("limit must be at least 1, got %d", c.Limit), "")
	}
	if _, err := process.ParseSortKey(c.Sort); err != nil {
		return err
	}
	if c.Filter != "" {
		if _, err := regexp.Compile(c.Filter); err != nil {
			return hierrors.Wrap(err, hierrors.Config, fmt.Sprintf("invalid filter %q", c.Filter))
		}
	}
	if c.ProbeTimeout <= 0 {
		return hierrors.New(hierrors.Config, "probe_timeout must be positive", "")
	}
	return nil
}

// SortKey returns the parsed sort key. Call it on a validated Config.
func (c Config) SortKey() process.SortKey {
	k, err := process.ParseSortKey(c.Sort)
	if err != nil {
		return process.SortCPU
	}
	return k
}
