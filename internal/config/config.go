package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 LEDGER_DATABASE_DSN 覆盖 database.dsn
const EnvPrefix = "LEDGER"

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig 唯一必填项是连接串
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	GuardianAlert     string `mapstructure:"guardian_alert"`
	TransactionResult string `mapstructure:"transaction_result"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BusinessConfig struct {
	HighRiskThreshold    string `mapstructure:"high_risk_threshold"`
	AllowOverdraft       bool   `mapstructure:"allow_overdraft"`
	ReviewTimeoutMinutes int    `mapstructure:"review_timeout_minutes"`
	ReviewSweepSeconds   int    `mapstructure:"review_sweep_seconds"`
	OutboxIntervalMs     int    `mapstructure:"outbox_interval_ms"`
	MaxRetryCount        int    `mapstructure:"max_retry_count"`
}

// Threshold 高风险金额阈值，严格大于该值才算高风险
func (b BusinessConfig) Threshold() decimal.Decimal {
	d, err := decimal.NewFromString(b.HighRiskThreshold)
	if err != nil {
		return decimal.RequireFromString(defaultHighRiskThreshold)
	}
	return d
}

func (b BusinessConfig) ReviewTimeout() time.Duration {
	return time.Duration(b.ReviewTimeoutMinutes) * time.Minute
}

func (b BusinessConfig) ReviewSweepInterval() time.Duration {
	return time.Duration(b.ReviewSweepSeconds) * time.Second
}

func (b BusinessConfig) OutboxInterval() time.Duration {
	return time.Duration(b.OutboxIntervalMs) * time.Millisecond
}

const defaultHighRiskThreshold = "5000.00"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic.guardian_alert", "guardian_alert")
	v.SetDefault("kafka.topic.transaction_result", "transaction_result")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("business.high_risk_threshold", defaultHighRiskThreshold)
	v.SetDefault("business.allow_overdraft", false)
	v.SetDefault("business.review_timeout_minutes", 24*60)
	v.SetDefault("business.review_sweep_seconds", 60)
	v.SetDefault("business.outbox_interval_ms", 500)
	v.SetDefault("business.max_retry_count", 5)
}

// Load 加载配置
// 顺序：默认值 < 配置文件 < .env < 环境变量。configPath 为空时只用默认值和环境变量
func Load(configPath string) (*Config, error) {
	// .env 不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn 未配置（可通过 LEDGER_DATABASE_DSN 设置）")
	}
	threshold, err := decimal.NewFromString(c.Business.HighRiskThreshold)
	if err != nil {
		return fmt.Errorf("business.high_risk_threshold 非法: %w", err)
	}
	if threshold.IsNegative() {
		return errors.New("business.high_risk_threshold 不能为负数")
	}
	if c.Business.ReviewTimeoutMinutes <= 0 {
		return errors.New("business.review_timeout_minutes 必须大于0")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers 不能为空")
	}
	return nil
}
