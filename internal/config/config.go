package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ShortRowFail = "fail"
	ShortRowSkip = "skip"
)

// Config holds the application configuration loaded from files, flags and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	CSVFile        string `mapstructure:"csv_file"`
	OutputDir      string `mapstructure:"output_dir"`
	SkipHeader     bool   `mapstructure:"skip_header"`
	ShortRowPolicy string `mapstructure:"short_row_policy"`
	WaitForInput   bool   `mapstructure:"wait_for_input"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	UserAgent          string        `mapstructure:"user_agent"`
	ResolvePageImages  bool          `mapstructure:"resolve_page_images"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	PublishersFile        string `mapstructure:"publishers_file"`
	MetricsPushgatewayURL string `mapstructure:"metrics_pushgateway_url"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"csv":          "csv_file",
	"output-dir":   "output_dir",
	"log-level":    "log_level",
	"skip-header":  "skip_header",
	"short-rows":   "short_row_policy",
	"wait":         "wait_for_input",
	"timeout":      "http_timeout_seconds",
	"resolve-page": "resolve_page_images",
	"publishers":   "publishers_file",
}

// Load reads configuration from environment variables, an optional config
// file and any flags set on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "artifact-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("csv_file", "met artifact data.csv")
	v.SetDefault("output_dir", ".")
	v.SetDefault("skip_header", false)
	v.SetDefault("short_row_policy", ShortRowFail)
	v.SetDefault("wait_for_input", true)
	v.SetDefault("http_timeout_seconds", 100)
	v.SetDefault("user_agent", "artifact-harvester/1.0")
	v.SetDefault("resolve_page_images", false)
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/ledger.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("publishers_file", "")
	v.SetDefault("metrics_pushgateway_url", "")

	v.AutomaticEnv()

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
		if path, err := fs.GetString("config"); err == nil && strings.TrimSpace(path) != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (cfg *Config) normalize() error {
	if strings.TrimSpace(cfg.CSVFile) == "" {
		return fmt.Errorf("csv_file is required")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = "."
	}

	cfg.ShortRowPolicy = strings.ToLower(strings.TrimSpace(cfg.ShortRowPolicy))
	switch cfg.ShortRowPolicy {
	case ShortRowFail, ShortRowSkip:
	default:
		return fmt.Errorf("invalid short_row_policy %q (want %s or %s)", cfg.ShortRowPolicy, ShortRowFail, ShortRowSkip)
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
