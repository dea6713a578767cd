package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"TriRecover/pkg/logger"
	"TriRecover/pkg/util"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      ServerConfig     `yaml:"server"`
	Log         logger.Config    `yaml:"log"`
	Engine      EngineConfig     `yaml:"engine"`
	Store       StoreConfig      `yaml:"store"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Supabase    SupabaseConfig   `yaml:"supabase"`
	Queue       QueueConfig      `yaml:"queue"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

// EngineConfig tunes the service around the pure engine.
type EngineConfig struct {
	// Timezone decides what "today" is for morning-entry defaults.
	Timezone        string        `yaml:"timezone" default:"Local"`
	TimelineMaxDays int           `yaml:"timeline_max_days" default:"366" validate:"gte=1,lte=3660"`
	TimelineWorkers int           `yaml:"timeline_workers" default:"8" validate:"gte=1,lte=64"`
	CacheTTL        time.Duration `yaml:"cache_ttl" default:"10m"`
}

type StoreConfig struct {
	Backend  string         `yaml:"backend" default:"memory" validate:"oneof=memory postgres"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn" validate:"required_if=Enabled true"`
	Enabled         bool          `yaml:"-"`
	MaxConns        int32         `yaml:"max_conns" default:"8" validate:"gte=1"`
	MinConns        int32         `yaml:"min_conns" default:"1" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" default:"5m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"5s"`
}

type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Host       string        `yaml:"host" default:"localhost"`
	Port       int           `yaml:"port" default:"6379"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db" default:"0"`
	Prefix     string        `yaml:"prefix" default:"trirecover"`
	PoolSize   int           `yaml:"pool_size" default:"10"`
	MemorySize int           `yaml:"memory_size" default:"512"` // L1 entries in layered mode
	L1TTL      time.Duration `yaml:"l1_ttl" default:"30s"`
}

type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Compression string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	AutoCreate  bool     `yaml:"auto_create_topics" default:"true"`
	Topics      struct {
		Entries     string `yaml:"entries" default:"trirecover.entries"`
		Assessments string `yaml:"assessments" default:"trirecover.assessments"`
		Logs        string `yaml:"logs" default:"trirecover.logs"`
		DLQ         string `yaml:"dlq" default:"trirecover.dlq"`
	} `yaml:"topics"`
	Producer struct {
		RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"gte=-1,lte=1"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"trirecover"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"64"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	} `yaml:"consumer"`
	Logs struct {
		Enabled        bool          `yaml:"enabled"`
		FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
		CountThreshold int           `yaml:"count_threshold" default:"100"`
	} `yaml:"logs"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"default"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	Table            string        `yaml:"table" default:"day_assessments"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	BatchSize        int           `yaml:"batch_size" default:"100"`
	FlushInterval    time.Duration `yaml:"flush_interval" default:"2s"`
}

// SupabaseConfig points at the hosted copy of the journal. Sync is off while URL or Key is empty.
type SupabaseConfig struct {
	URL       string        `yaml:"url" validate:"omitempty,url"`
	Key       string        `yaml:"key"`
	Table     string        `yaml:"table" default:"daily_entries"`
	Timeout   time.Duration `yaml:"timeout" default:"15s"`
	RPS       float64       `yaml:"rps" default:"2"`
	FailAfter uint32        `yaml:"fail_after" default:"3"`
	OpenFor   time.Duration `yaml:"open_for" default:"30s"`
}

// Enabled reports whether both URL and key are configured.
func (s SupabaseConfig) Enabled() bool { return s.URL != "" && s.Key != "" }

type QueueConfig struct {
	Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"20"`
	Burst   int     `yaml:"burst" default:"40"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a config with every default applied. It runs on the
// in-memory store with no external services.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err)) // tags are static
	}
	return &c
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads path (or only defaults when path is empty) and applies
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Store.Postgres.DSN = v
		if getenv("STORE_BACKEND") == "" {
			c.Store.Backend = BackendPostgres
		}
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port := splitHostPort(v, c.Redis.Port)
		c.Redis.Host, c.Redis.Port, c.Redis.Enabled = host, port, true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := getenv("SUPABASE_URL"); v != "" {
		c.Supabase.URL = v
	}
	if v := getenv("SUPABASE_KEY"); v != "" {
		c.Supabase.Key = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
}

// Validate checks struct tags plus rules that span sections.
func (c *Config) Validate() error {
	c.Store.Postgres.Enabled = c.Store.Backend == BackendPostgres
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Logs.Enabled && !c.Kafka.Enabled {
		return errors.New("kafka.logs.enabled requires kafka.enabled")
	}
	if c.Engine.Timezone != "" {
		if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
			return fmt.Errorf("engine.timezone: %w", err)
		}
	}
	return nil
}

// Location returns the configured engine timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitHostPort(addr string, defPort int) (string, int) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			port, err := strconv.Atoi(addr[i+1:])
			if err != nil {
				return addr, defPort
			}
			return addr[:i], port
		}
	}
	return addr, defPort
}
