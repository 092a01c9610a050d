// Package config loads the report settings. Values come from built-in
// defaults, then an optional YAML file, then a .env file, then the process
// environment, each layer overriding the previous one. The result is read once
// at startup and treated as immutable.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ansel1/htmlreport/report"
)

// Environment variables recognised by Load.
const (
	EnvHome         = "REPORT_HOME"
	EnvOrgPrefix    = "REPORT_ORG_PREFIX"
	EnvLogLevel     = "REPORT_LOG_LEVEL"
	EnvDateFormat   = "REPORT_DATE_FORMAT"
	EnvLegacyMarkup = "REPORT_LEGACY_MARKUP"
	EnvAssetsDir    = "REPORT_ASSETS_DIR"
)

// DotEnvFile is the .env file consulted by Load, relative to the working directory.
const DotEnvFile = ".env"

// Config represents the report configuration
type Config struct {
	Home         string `yaml:"home"`
	OrgPrefix    string `yaml:"org_prefix"`
	LogLevel     string `yaml:"log_level"`
	DateFormat   string `yaml:"date_format"`
	LegacyMarkup bool   `yaml:"legacy_markup"`
	AssetsDir    string `yaml:"assets_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Home:       "target/htmlreport",
		OrgPrefix:  "package-root",
		LogLevel:   "FINE",
		DateFormat: "Mon, 02-Jan-2006 15:04:05.000 MST",
	}
}

// Load builds the configuration. An empty path skips the YAML layer; a missing
// .env file is not an error.
func Load(path string) (Config, error) {
	return load(path, DotEnvFile)
}

func load(path, dotenv string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	vars := map[string]string{}
	if dotenv != "" {
		read, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			vars = read
		case !errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("failed to load environment: %w", err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}

	if v, ok := lookup(EnvHome); ok {
		cfg.Home = v
	}
	if v, ok := lookup(EnvOrgPrefix); ok {
		cfg.OrgPrefix = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvDateFormat); ok {
		cfg.DateFormat = v
	}
	if v, ok := lookup(EnvAssetsDir); ok {
		cfg.AssetsDir = v
	}
	if v, ok := lookup(EnvLegacyMarkup); ok {
		legacy, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvLegacyMarkup, v, err)
		}
		cfg.LegacyMarkup = legacy
	}

	if _, err := cfg.Settings(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Settings converts the configuration into report session settings.
func (c Config) Settings() (report.Settings, error) {
	if c.Home == "" {
		return report.Settings{}, errors.New("report home must not be empty")
	}
	level, err := report.ParseLevel(c.LogLevel)
	if err != nil {
		return report.Settings{}, fmt.Errorf("invalid log level: %w", err)
	}

	var assets report.Assets = report.NoAssets{}
	if c.AssetsDir != "" {
		assets = report.DirAssets(c.AssetsDir)
	}

	return report.Settings{
		Home:       c.Home,
		OrgPrefix:  c.OrgPrefix,
		Threshold:  level,
		DateFormat: c.DateFormat,
		Escape:     !c.LegacyMarkup,
		Assets:     assets,
	}, nil
}
