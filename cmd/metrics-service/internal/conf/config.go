package conf

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	ClickHouse    ClickHouseConfig    `mapstructure:"clickhouse"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Tiers         TiersConfig         `mapstructure:"tiers"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DBName          string        `mapstructure:"dbname"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ClickHouseConfig ClickHouse 配置
type ClickHouseConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BillingConfig 计费服务商配置
type BillingConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	SecretKey  string        `mapstructure:"secret_key"`
	PageSize   int           `mapstructure:"page_size"`
	MaxPages   int           `mapstructure:"max_pages"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

// MetricsConfig 指标引擎配置
type MetricsConfig struct {
	ChurnWindowDays    int           `mapstructure:"churn_window_days"`
	SpendWindowDays    int           `mapstructure:"spend_window_days"`
	WeeklyActiveDays   int           `mapstructure:"weekly_active_days"`
	MonthlyActiveDays  int           `mapstructure:"monthly_active_days"`
	GrowthLookbackDays int           `mapstructure:"growth_lookback_days"`
	HistoryLimit       int           `mapstructure:"history_limit"`
	MonthlyBurn        int64         `mapstructure:"monthly_burn"`
	LatestCacheTTL     time.Duration `mapstructure:"latest_cache_ttl"`
}

// TiersConfig 价格标识到档位的映射表
type TiersConfig struct {
	Version  string            `mapstructure:"version"`
	PriceMap map[string]string `mapstructure:"price_map"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	OTELEndpoint   string  `mapstructure:"otel_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	Environment    string  `mapstructure:"environment"`
	EnableTrace    bool    `mapstructure:"enable_trace"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
	LogLevel       string  `mapstructure:"log_level"`
	LogFormat      string  `mapstructure:"log_format"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("metrics-service")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// 自动从环境变量读取
	v.AutomaticEnv()

	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// 从环境变量覆盖敏感配置
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if password := os.Getenv("CLICKHOUSE_PASSWORD"); password != "" {
		config.ClickHouse.Password = password
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if key := os.Getenv("BILLING_SECRET_KEY"); key != "" {
		config.Billing.SecretKey = key
	}
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		config.Observability.OTELEndpoint = endpoint
	}

	return &config, nil
}

// setDefaults 引擎窗口与分页的默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8010)
	v.SetDefault("server.metrics_port", 8011)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("billing.page_size", 100)
	v.SetDefault("billing.max_pages", 20)
	v.SetDefault("billing.timeout", "10s")
	v.SetDefault("billing.max_retries", 2)
	v.SetDefault("billing.retry_delay", "200ms")

	v.SetDefault("metrics.churn_window_days", 30)
	v.SetDefault("metrics.spend_window_days", 30)
	v.SetDefault("metrics.weekly_active_days", 7)
	v.SetDefault("metrics.monthly_active_days", 30)
	v.SetDefault("metrics.growth_lookback_days", 30)
	v.SetDefault("metrics.history_limit", 60)
	v.SetDefault("metrics.latest_cache_ttl", "5m")

	v.SetDefault("kafka.topic", "metrics.snapshots")
}
