package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Token    TokenConfig    `mapstructure:"token"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// 雪花算法机器ID，多实例部署时每个实例必须不同
	WorkerID        int64         `mapstructure:"worker_id"`
}

// DatabaseConfig 数据库配置
// Driver 取值 mysql / postgres / sqlite，sqlite 仅用于本地开发和测试
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
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
	Enabled        bool             `mapstructure:"enabled"`
	Brokers        []string         `mapstructure:"brokers"`
	Topic          KafkaTopicConfig `mapstructure:"topic"`
	MaxRetryCount  int              `mapstructure:"max_retry_count"`
	OutboxInterval time.Duration    `mapstructure:"outbox_interval"`
}

type KafkaTopicConfig struct {
	PaymentResult string `mapstructure:"payment_result"`
}

// AuthConfig POS 运营者会话配置
// JWTSecret 必须通过配置文件或环境变量 TICKETPOS_AUTH_JWT_SECRET 注入
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// TokenConfig QR 兑换码相关配置
type TokenConfig struct {
	FreshnessWindow   time.Duration `mapstructure:"freshness_window"`
	GracePeriod       time.Duration `mapstructure:"grace_period"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize    int           `mapstructure:"sweep_batch_size"`
	ReuseWithinWindow bool          `mapstructure:"reuse_within_window"`
}

// Retention 兑换码保留时长：有效期 + 宽限期，超过后由清理任务删除
func (c TokenConfig) Retention() time.Duration {
	return c.FreshnessWindow + c.GracePeriod
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3636)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.worker_id", 1)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("kafka.topic.payment_result", "pos_payment_result")
	v.SetDefault("kafka.max_retry_count", 5)
	v.SetDefault("kafka.outbox_interval", 500*time.Millisecond)

	v.SetDefault("auth.session_ttl", 8*time.Hour)

	v.SetDefault("token.freshness_window", time.Minute)
	v.SetDefault("token.grace_period", 5*time.Minute)
	v.SetDefault("token.sweep_interval", 5*time.Minute)
	v.SetDefault("token.sweep_batch_size", 1000)
	v.SetDefault("token.reuse_within_window", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
}

// Load 读取配置文件并叠加环境变量，返回校验后的配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TICKETPOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv 只对已知 key 生效，密钥没有默认值需要显式绑定
	_ = v.BindEnv("auth.jwt_secret")
	_ = v.BindEnv("database.dsn")
	_ = v.BindEnv("database.password")
	_ = v.BindEnv("redis.password")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig 加载配置文件，失败直接退出进程
func LoadConfig(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	return cfg
}

// Validate 校验启动必需的配置项
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret 未配置")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl 必须大于0")
	}
	if c.Token.FreshnessWindow <= 0 {
		return errors.New("token.freshness_window 必须大于0")
	}
	// 宽限期为0时清理任务可能与边界兑换码的校验并发，必须留出余量
	if c.Token.GracePeriod <= 0 {
		return errors.New("token.grace_period 必须大于0")
	}
	if c.Token.SweepInterval <= 0 {
		return errors.New("token.sweep_interval 必须大于0")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.enabled 为 true 时 kafka.brokers 不能为空")
	}
	return nil
}
