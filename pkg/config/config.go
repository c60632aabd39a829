package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	Cart     CartConfig     `mapstructure:"cart"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig describes the gRPC listener.
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type GatewayConfig struct {
	Name            string        `mapstructure:"name"`
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "mysql" or "sqlite".
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	Seed         bool   `mapstructure:"seed"`
	LogQueries   bool   `mapstructure:"log_queries"`
}

// RedisConfig is optional. An empty Addr disables the cart blob store and
// the order read cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type OrdersConfig struct {
	PricePolicy       string        `mapstructure:"price_policy"`
	StrictTransitions bool          `mapstructure:"strict_transitions"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

type CartConfig struct {
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TTL            time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "bistro-orders")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9090)

	v.SetDefault("gateway.name", "bistro-gateway")
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("gateway.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "bistro.db")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.database", "bistro")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.seed", true)

	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("mongodb.database", "bistro")
	v.SetDefault("mongodb.collection", "order_audit")

	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services")
	v.SetDefault("etcd.lease_ttl", 10)

	v.SetDefault("kafka.topic", "bistro.orders")

	v.SetDefault("orders.price_policy", "trust")
	v.SetDefault("orders.strict_transitions", false)
	v.SetDefault("orders.cache_ttl", 5*time.Minute)

	v.SetDefault("cart.idle_timeout", 10*time.Minute)
	v.SetDefault("cart.request_timeout", 3*time.Second)
	v.SetDefault("cart.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads configuration from configPath, or from ./config/config.yaml
// when configPath is empty. A missing default file is not an error.
// Environment variables prefixed with BISTRO_ override file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BISTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Orders.PricePolicy {
	case "trust", "reprice", "reject":
	default:
		return fmt.Errorf("unsupported price policy %q", c.Orders.PricePolicy)
	}
	if c.Cart.RequestTimeout <= 0 {
		return errors.New("cart.request_timeout must be positive")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
