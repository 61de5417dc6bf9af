package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers for the account, journal, proposal and member stores.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ModeTest is the only server mode that may run without a JWT secret.
const ModeTest = "test"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Voting    VotingConfig    `mapstructure:"voting"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // mongo, postgres, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"` // apply embedded migrations at startup
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Addrs      []string      `mapstructure:"addrs"`       // overrides host/port; several means cluster
	MasterName string        `mapstructure:"master_name"` // sentinel failover
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Endpoints lists the addresses to dial.
func (r RedisConfig) Endpoints() []string {
	if len(r.Addrs) > 0 {
		return r.Addrs
	}
	return []string{r.Addr()}
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"` // empty disables publishing
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether an event stream is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AuthConfig struct {
	// AdminEmails are granted the admin role at registration.
	AdminEmails []string `mapstructure:"admin_emails"`
}

type LedgerConfig struct {
	// Allocations overrides or extends the default allocation table.
	Allocations         map[string]int64 `mapstructure:"allocations"`
	SignupGrant         bool             `mapstructure:"signup_grant"`
	IdempotencyTTL      time.Duration    `mapstructure:"idempotency_ttl"`
	ReconcileInterval   time.Duration    `mapstructure:"reconcile_interval"`
	ReconcileStaleAfter time.Duration    `mapstructure:"reconcile_stale_after"`
	ReconcileBatch      int              `mapstructure:"reconcile_batch"`
}

type VotingConfig struct {
	Directions          []string      `mapstructure:"directions"`
	RequireBoundMessage bool          `mapstructure:"require_bound_message"`
	ReplayTTL           time.Duration `mapstructure:"replay_ttl"`
}

type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first if present.
// Environment variables override file values. Prefix: GOV_.
// Nested keys use underscore: GOV_MONGO_URI, GOV_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// GOV_DATABASE_HOST -> database.host
	v.SetEnvPrefix("GOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("storage.driver", DriverMongo)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "governance")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "governance")
	v.SetDefault("mongo.timeout", "10s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", "3s")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "governance.ledger")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "governance-ledger")
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("ledger.allocations", map[string]int64{})
	v.SetDefault("ledger.signup_grant", true)
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("ledger.reconcile_interval", "1m")
	v.SetDefault("ledger.reconcile_stale_after", "2m")
	v.SetDefault("ledger.reconcile_batch", 100)
	v.SetDefault("voting.directions", []string{"yes", "no", "abstain"})
	v.SetDefault("voting.require_bound_message", true)
	v.SetDefault("voting.replay_ttl", "720h")
	v.SetDefault("rate_limit.limit", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	if c.Ledger.ReconcileInterval <= 0 {
		return errors.New("ledger.reconcile_interval must be positive")
	}
	if c.Ledger.ReconcileStaleAfter <= 0 {
		return errors.New("ledger.reconcile_stale_after must be positive")
	}
	if c.Ledger.ReconcileBatch <= 0 {
		return errors.New("ledger.reconcile_batch must be positive")
	}
	if len(c.Voting.Directions) == 0 {
		return errors.New("voting.directions must not be empty")
	}
	if c.JWT.Secret == "" && c.Server.Mode != ModeTest {
		return errors.New("jwt.secret is required unless server.mode is test")
	}
	return nil
}
