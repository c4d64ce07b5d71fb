package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Health  HealthConfig  `mapstructure:"health"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
}

// APIConfig points at the analysis backend.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// HealthConfig controls liveness polling.
type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	Database string `mapstructure:"database"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	PreviewWidth  int `mapstructure:"preview_width"`
	PreviewHeight int `mapstructure:"preview_height"`
}

const envConfig = "SCANDRAW_CONFIG"

func defaultDataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "scandraw")
}

// Load reads configuration from file and env. Env var overrides use prefix SCANDRAW_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("health.interval", "10s")
	v.SetDefault("health.timeout", "4s")
	v.SetDefault("storage.data_dir", defaultDataDir())
	v.SetDefault("storage.database", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("ui.preview_width", 48)
	v.SetDefault("ui.preview_height", 18)

	v.SetConfigType("toml")

	cfgPath := os.Getenv(envConfig)
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "scandraw"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SCANDRAW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgPath != "" && os.IsNotExist(err)) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.fillPaths()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) fillPaths() {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = defaultDataDir()
	}
	if c.Storage.Database == "" {
		c.Storage.Database = filepath.Join(c.Storage.DataDir, "history.db")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.Storage.DataDir, "scandraw.log")
	}
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.Health.Interval <= 0 {
		return fmt.Errorf("config: health.interval must be positive")
	}
	if c.Health.Timeout <= 0 || c.Health.Timeout >= c.Health.Interval {
		return fmt.Errorf("config: health.timeout (%s) must be positive and below health.interval (%s)", c.Health.Timeout, c.Health.Interval)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if c.UI.PreviewWidth < 8 || c.UI.PreviewHeight < 4 {
		return fmt.Errorf("config: preview must be at least 8x4 cells")
	}
	return nil
}

// Path returns the file Save writes to.
func Path() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "scandraw", "config.toml")
}

// Save writes the provided config to disk, creating the config directory if needed.
// The access token never goes here; it lives in the secrets store.
func Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("health.interval", cfg.Health.Interval.String())
	v.Set("health.timeout", cfg.Health.Timeout.String())
	v.Set("storage.data_dir", cfg.Storage.DataDir)
	v.Set("storage.database", cfg.Storage.Database)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)
	v.Set("ui.preview_width", cfg.UI.PreviewWidth)
	v.Set("ui.preview_height", cfg.UI.PreviewHeight)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
