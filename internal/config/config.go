// Package config loads the chartdraw configuration from a YAML file, an optional
// .env file and CHARTDRAW_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/raykavin/chartdraw/pkg/storage"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "./chartdraw.yaml"
	EnvPrefix         = "CHARTDRAW"
)

var drivers = []string{storage.DriverBunt, storage.DriverSQLite, storage.DriverPostgres}

// Config holds every setting of the CLI and server
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Chart   ChartConfig   `mapstructure:"chart" yaml:"chart"`
	Feed    FeedConfig    `mapstructure:"feed" yaml:"feed"`
	Binance BinanceConfig `mapstructure:"binance" yaml:"binance"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	TimeFormat string `mapstructure:"time_format" yaml:"time_format"`
	Colored    bool   `mapstructure:"colored" yaml:"colored"`
	JSON       bool   `mapstructure:"json" yaml:"json"`
}

// StorageConfig selects the persistence backend. Path is used by buntdb and
// sqlite, DSN by postgres.
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// ChartConfig sizes the headless chart used for snapshots
type ChartConfig struct {
	Width       int     `mapstructure:"width" yaml:"width"`
	Height      int     `mapstructure:"height" yaml:"height"`
	BarSpacing  float64 `mapstructure:"bar_spacing" yaml:"bar_spacing"`
	RightOffset float64 `mapstructure:"right_offset" yaml:"right_offset"`
	Magnet      bool    `mapstructure:"magnet" yaml:"magnet"`
}

// FeedConfig names the CSV file served under the chart
type FeedConfig struct {
	CSV             string `mapstructure:"csv" yaml:"csv"`
	Pair            string `mapstructure:"pair" yaml:"pair"`
	Timeframe       string `mapstructure:"timeframe" yaml:"timeframe"`
	TargetTimeframe string `mapstructure:"target_timeframe" yaml:"target_timeframe"`
}

type BinanceConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			TimeFormat: "2006-01-02 15:04:05",
			Colored:    true,
		},
		Storage: StorageConfig{
			Driver: storage.DriverBunt,
			Path:   "./chartdraw.db",
		},
		Server: ServerConfig{Port: 8080},
		Chart: ChartConfig{
			Width:       1280,
			Height:      720,
			BarSpacing:  8,
			RightOffset: 60,
		},
		Feed: FeedConfig{
			Pair:      "BTCUSDT",
			Timeframe: "1h",
		},
	}
}

// Load reads the configuration. A missing file at path is not an error; the
// defaults apply. envFiles are loaded with godotenv before the environment is
// consulted and never override variables already set.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]any{
		"log.level":             cfg.Log.Level,
		"log.time_format":       cfg.Log.TimeFormat,
		"log.colored":           cfg.Log.Colored,
		"log.json":              cfg.Log.JSON,
		"storage.driver":        cfg.Storage.Driver,
		"storage.path":          cfg.Storage.Path,
		"storage.dsn":           cfg.Storage.DSN,
		"server.port":           cfg.Server.Port,
		"chart.width":           cfg.Chart.Width,
		"chart.height":          cfg.Chart.Height,
		"chart.bar_spacing":     cfg.Chart.BarSpacing,
		"chart.right_offset":    cfg.Chart.RightOffset,
		"chart.magnet":          cfg.Chart.Magnet,
		"feed.csv":              cfg.Feed.CSV,
		"feed.pair":             cfg.Feed.Pair,
		"feed.timeframe":        cfg.Feed.Timeframe,
		"feed.target_timeframe": cfg.Feed.TargetTimeframe,
		"binance.api_key":       cfg.Binance.APIKey,
		"binance.secret_key":    cfg.Binance.SecretKey,
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate checks the settings that cannot be defaulted away
func (c *Config) Validate() error {
	if !slices.Contains(drivers, c.Storage.Driver) {
		return fmt.Errorf("unknown storage driver %q, expected one of %s", c.Storage.Driver, strings.Join(drivers, ", "))
	}
	if c.Storage.Driver == storage.DriverPostgres && c.Storage.DSN == "" {
		return errors.New("storage.dsn is required for postgres")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("invalid chart size %dx%d", c.Chart.Width, c.Chart.Height)
	}
	if c.Chart.BarSpacing <= 0 {
		return fmt.Errorf("invalid bar spacing %v", c.Chart.BarSpacing)
	}
	return nil
}

// WriteDefault writes the default configuration to path as YAML
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	return os.WriteFile(path, data, 0o644)
}
