package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths 按顺序查找的配置文件
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

// Config 应用配置，环境变量名即小写后的 koanf key (DATABASE_URL -> database_url)
type Config struct {
	DBDriver       string        `koanf:"db_driver"`
	DatabaseURL    string        `koanf:"database_url"`
	Port           string        `koanf:"port"`
	SessionSecret  string        `koanf:"session_secret"`
	SiteURL        string        `koanf:"site_url"`
	MediaRoot      string        `koanf:"media_root"`
	PageSize       int           `koanf:"page_size"`
	LogMode        string        `koanf:"log_mode"`
	CORSOrigins    string        `koanf:"cors_origins"`
	IngredientsCSV string        `koanf:"ingredients_csv"`
	CacheSize      int           `koanf:"cache_size"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

func defaultConfig() Config {
	return Config{
		DBDriver:    "postgres",
		DatabaseURL: "host=localhost user=postgres password=postgres dbname=foodgram port=5432 sslmode=disable",
		Port:        "8080",
		SiteURL:     "http://localhost:8080",
		MediaRoot:   "./media",
		PageSize:    6,
		LogMode:     "dev",
		CacheSize:   500,
		CacheTTL:    5 * time.Minute,
	}
}

// Load 依次叠加：默认值 -> 配置文件 -> 环境变量
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown db_driver %q", c.DBDriver)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("session_secret is required in prod mode")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	m := strings.ToLower(c.LogMode)
	return m == "prod" || m == "production"
}

// Origins 解析逗号分隔的 CORS 白名单
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
