package config

import (
	"fmt"
	"strings"

	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Worker    WorkerConfig
	Events    EventsConfig
	Overdue   OverdueConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

func (c DatabaseConfig) FormatDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	InboxLimit int64  `mapstructure:"inbox_limit"`
}

type RabbitMQConfig struct {
	URL          string `mapstructure:"url"`
	ExchangeName string `mapstructure:"exchange_name"`
}

type WorkerConfig struct {
	NumWorkers int           `mapstructure:"num_workers"`
	Queues     []string      `mapstructure:"queues"`
	DedupTTL   time.Duration `mapstructure:"dedup_ttl"`
}

// EventsConfig sizes the in-process buffer between the lifecycle service
// and the broker.
type EventsConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type OverdueConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"rps"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	bindFlatKeysToNested(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "15m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.inbox_limit", 100)

	v.SetDefault("rabbitmq.exchange_name", "task-events")

	v.SetDefault("worker.num_workers", 10)
	v.SetDefault("worker.queues", []string{"task-events.notifications"})
	v.SetDefault("worker.dedup_ttl", "24h")

	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.publish_timeout", "10s")

	v.SetDefault("overdue.enabled", true)
	v.SetDefault("overdue.interval", "1m")
	v.SetDefault("overdue.dedup_ttl", "24h")
	v.SetDefault("overdue.lock_ttl", "30s")

	v.SetDefault("ratelimit.rps", 1000)
	v.SetDefault("ratelimit.burst", 2000)

	v.SetDefault("log.level", "info")
}

func validateConfig(config *Config) error {
	if config.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if config.Database.Password == "" {
		return fmt.Errorf("database.password is required")
	}
	if config.Database.DBName == "" {
		return fmt.Errorf("database.dbname is required")
	}
	if config.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq.url is required")
	}
	if config.Worker.DedupTTL <= 0 {
		return fmt.Errorf("worker.dedup_ttl must be positive")
	}
	if config.Overdue.Enabled && config.Overdue.Interval <= 0 {
		return fmt.Errorf("overdue.interval must be positive")
	}
	if config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}

func bindFlatKeysToNested(v *viper.Viper) {
	for _, key := range []string{
		"database.host", "database.user", "database.password", "database.dbname", "database.sslmode",
		"redis.addr", "redis.password",
		"rabbitmq.url", "rabbitmq.exchange_name",
		"server.host",
		"log.level",
	} {
		bindString(v, key)
	}

	for _, key := range []string{
		"database.port", "database.max_open_conns", "database.max_idle_conns",
		"redis.db", "redis.inbox_limit",
		"server.port",
		"worker.num_workers",
		"events.buffer_size",
		"ratelimit.burst",
	} {
		if flat := flatKey(key); v.IsSet(flat) {
			v.Set(key, v.GetInt(flat))
		}
	}

	for _, key := range []string{
		"database.conn_max_lifetime",
		"events.publish_timeout",
		"worker.dedup_ttl",
		"overdue.interval", "overdue.dedup_ttl", "overdue.lock_ttl",
	} {
		if flat := flatKey(key); v.IsSet(flat) {
			v.Set(key, v.GetDuration(flat))
		}
	}

	for _, key := range []string{"database.auto_migrate", "overdue.enabled"} {
		if flat := flatKey(key); v.IsSet(flat) {
			v.Set(key, v.GetBool(flat))
		}
	}

	if v.IsSet("ratelimit_rps") {
		v.Set("ratelimit.rps", v.GetFloat64("ratelimit_rps"))
	}

	if v.IsSet("worker_queues") {
		val := v.Get("worker_queues")
		if strVal, ok := val.(string); ok {
			v.Set("worker.queues", strings.Split(strVal, ","))
		} else {
			v.Set("worker.queues", val)
		}
	}
}

func bindString(v *viper.Viper, key string) {
	if flat := flatKey(key); v.IsSet(flat) {
		v.Set(key, v.GetString(flat))
	}
}

// flatKey turns database.max_open_conns into database_max_open_conns.
func flatKey(key string) string {
	return strings.Replace(key, ".", "_", 1)
}
