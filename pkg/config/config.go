// Package config 提供 TOML 配置加载、环境变量覆盖与基础校验
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/supervision/pkg/logger"
)

// Config 监管报告服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// 判定服务（AI agent）配置
	Judge JudgeConfig `mapstructure:"judge"`
	// 审计日志配置
	Audit AuditConfig `mapstructure:"audit"`
	// 鉴权配置
	Auth AuthConfig `mapstructure:"auth"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
	// 上传文件大小上限（MB）
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql 或 memory（演示模式，不连库）
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// JudgeConfig 判定服务配置，validate/analyze/compose 三类调用共用一个端点
type JudgeConfig struct {
	// 提供方：rules（内置规则引擎）或 remote（DeepSeek 兼容接口）
	Provider string `mapstructure:"provider"`
	// 远端 API 地址
	BaseURL string `mapstructure:"base_url"`
	// API Key
	APIKey string `mapstructure:"api_key"`
	// 校验调用使用的模型
	ValidateModel string `mapstructure:"validate_model"`
	// 风险分析调用使用的模型
	AnalyzeModel string `mapstructure:"analyze_model"`
	// 通知文案调用使用的模型
	ComposeModel string `mapstructure:"compose_model"`
	// 单次调用超时（秒）
	Timeout int `mapstructure:"timeout"`
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	// 输出方式：file, kafka, both, none
	Sink string `mapstructure:"sink"`
	// JSONL 审计文件路径
	FilePath string `mapstructure:"file_path"`
	// Kafka broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// Kafka topic
	Topic string `mapstructure:"topic"`
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	// 会话令牌签名密钥
	SecretKey string `mapstructure:"secret_key"`
	// 令牌有效期（小时）
	TokenTTLHours int `mapstructure:"token_ttl_hours"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// Load 从 TOML 文件加载配置，支持 APP_ 前缀环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for mysql driver")
	}
	if c.Judge.Provider == "remote" && c.Judge.BaseURL == "" {
		return fmt.Errorf("judge base_url is required for remote provider")
	}
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth secret_key is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("http.max_upload_mb", 50)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("judge.provider", "rules")
	v.SetDefault("judge.base_url", "https://api.deepseek.com")
	v.SetDefault("judge.validate_model", "deepseek-chat")
	v.SetDefault("judge.analyze_model", "deepseek-reasoner")
	v.SetDefault("judge.compose_model", "deepseek-chat")
	v.SetDefault("judge.timeout", 30)

	v.SetDefault("audit.sink", "file")
	v.SetDefault("audit.file_path", "logs/audit.jsonl")
	v.SetDefault("audit.topic", "supervision.audit")

	v.SetDefault("auth.token_ttl_hours", 24)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
