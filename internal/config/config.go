// Package config 提供配置管理
// 环境变量为主，可选 YAML 文件覆盖默认值（环境变量优先）
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zhiban/zhiban/pkg/logger"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Log       logger.Config   `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name" env:"APP_NAME" envDefault:"zhiban"`
	Env  string `yaml:"env" env:"APP_ENV" envDefault:"development"`
	Port int    `yaml:"port" env:"APP_PORT" envDefault:"7021"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST" envDefault:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" envDefault:"5432"`
	Name            string        `yaml:"name" env:"DB_NAME" envDefault:"zhiban"`
	User            string        `yaml:"user" env:"DB_USER" envDefault:"zhiban"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" envDefault:"zhiban123"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API 配置
type APIConfig struct {
	RateLimit   float64       `yaml:"rate_limit" env:"API_RATE_LIMIT" envDefault:"50"` // QPS
	RateBurst   int           `yaml:"rate_burst" env:"API_RATE_BURST" envDefault:"100"`
	Timeout     time.Duration `yaml:"timeout" env:"API_TIMEOUT" envDefault:"60s"`
	CORSEnabled bool          `yaml:"cors_enabled" env:"API_CORS_ENABLED" envDefault:"true"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	Attempts   int           `yaml:"attempts" env:"SCHEDULER_ATTEMPTS" envDefault:"8"`
	TimeBudget time.Duration `yaml:"time_budget" env:"SCHEDULER_TIME_BUDGET" envDefault:"5s"`
	Workers    int           `yaml:"workers" env:"SCHEDULER_WORKERS" envDefault:"4"`
	NodeLimit  int           `yaml:"node_limit" env:"SCHEDULER_NODE_LIMIT" envDefault:"200000"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `yaml:"path" env:"METRICS_PATH" envDefault:"/metrics"`
}

// Load 加载配置
// 优先级：默认值 < CONFIG_FILE 指定的 YAML < 环境变量
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
		// 第二遍只回放真实设置的环境变量，不再套用 envDefault
		if err := env.ParseWithOptions(cfg, env.Options{DefaultValueTagName: "envNoDefault"}); err != nil {
			return nil, fmt.Errorf("解析环境变量失败: %w", err)
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log = logger.DefaultConfig()
	}
	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
