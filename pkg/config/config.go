package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BubbleScope/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      Server        `yaml:"server"`
	Metrics     Metrics       `yaml:"metrics"`
	Logging     logger.Config `yaml:"logging"`
	Fitting     Fitting       `yaml:"fitting"`
	ClickHouse  ClickHouse    `yaml:"clickhouse"`
	Kafka       Kafka         `yaml:"kafka"`
	Redis       Redis         `yaml:"redis"`
	RateLimit   RateLimit     `yaml:"ratelimit"`
	Breaker     Breaker       `yaml:"breaker"`
}

type Server struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // websocket origins; empty allows all
}

type Metrics struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// Fitting tunes the engine. Quality thresholds left at zero keep their
// calibrated defaults.
type Fitting struct {
	Workers         int           `yaml:"workers" default:"0" validate:"gte=0"` // 0 = GOMAXPROCS
	Seed            uint64        `yaml:"seed" default:"1"`
	DefaultStrategy string        `yaml:"default_strategy" default:"conservative" validate:"oneof=conservative extensive emergency"`
	DefaultTimeout  time.Duration `yaml:"default_timeout" default:"2s"`
	MaxIterations   int           `yaml:"max_iterations" default:"400" validate:"gte=10"`
	StabilityRadius float64       `yaml:"stability_radius" default:"0.05" validate:"gt=0"`
	HistoryLimit    int           `yaml:"history_limit" default:"1000" validate:"gte=1"`
	CacheTTL        time.Duration `yaml:"cache_ttl" default:"6h"`
	Quality         Quality       `yaml:"quality"`
}

type Quality struct {
	HighRSquared       float64 `yaml:"high_r_squared" validate:"gte=0,lte=1"`
	AcceptableRSquared float64 `yaml:"acceptable_r_squared" validate:"gte=0,lte=1"`
	BoundaryTolerance  float64 `yaml:"boundary_tolerance" validate:"gte=0,lt=1"`
}

type ClickHouse struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"bubblescope"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	PriceTable       string        `yaml:"price_table" default:"daily_prices"`
	ResultTable      string        `yaml:"result_table" default:"lppl_selections"`
}

type Kafka struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic       string   `yaml:"topic" default:"bubblescope.fits"`
	LogTopic    string   `yaml:"log_topic" default:"bubblescope.logs"`
	Compression string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer    struct {
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"100ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
}

type Redis struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr" default:"localhost:6379"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Prefix      string        `yaml:"prefix" default:"bubblescope"`
	LocalSize   int           `yaml:"local_size" default:"256"`
	LocalTTL    time.Duration `yaml:"local_ttl" default:"5m"`
	PoolSize    int           `yaml:"pool_size" default:"10"`
	PoolTimeout time.Duration `yaml:"pool_timeout" default:"30s"`
}

type RateLimit struct {
	Enabled bool          `yaml:"enabled" default:"true"`
	RPS     float64       `yaml:"rps" default:"2" validate:"gt=0"`
	Burst   int           `yaml:"burst" default:"5" validate:"gte=1"`
	IdleTTL time.Duration `yaml:"idle_ttl" default:"10m"`
}

type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests" default:"1"`
	Interval         time.Duration `yaml:"interval" default:"1m"`
	Timeout          time.Duration `yaml:"timeout" default:"30s"`
	FailureThreshold uint32        `yaml:"failure_threshold" default:"5" validate:"gte=1"`
}

// Default returns a configuration with every default applied and all
// external backends disabled.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads a YAML file and applies defaults and validation.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (when present), then the YAML file, then applies
// environment overrides. An empty path starts from Default.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var (
		c   *Config
		err error
	)
	if path == "" {
		c = Default()
	} else if c, err = Load(path); err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("BUBBLESCOPE_ENV", &c.Environment)
	num("BUBBLESCOPE_PORT", &c.Server.Port)
	str("LOG_LEVEL", &c.Logging.Level)
	num("FITTING_WORKERS", &c.Fitting.Workers)
	str("FITTING_STRATEGY", &c.Fitting.DefaultStrategy)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	str("KAFKA_TOPIC", &c.Kafka.Topic)

	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	str("REDIS_PASSWORD", &c.Redis.Password)

	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}
