// Package config handles application configuration via environment variables
// and an optional YAML file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"farcaster-trader/internal/tokens"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Event store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Dispatch modes.
const (
	DispatchSync  = "sync"
	DispatchAsync = "async"
)

// Executor backends.
const (
	ExecutorLog   = "log"
	ExecutorKafka = "kafka"
)

// Config holds all configurable values for the app.
type Config struct {
	Env        string
	ServerName string
	HTTPAddr   string

	AuthorizedUsers []string
	TradeLimit      decimal.Decimal
	Tokens          map[string]string

	EventStore         string
	EventStoreCapacity int
	Redis              RedisConfig

	DispatchMode      string
	DispatchWorkers   int
	DispatchQueueSize int
	DispatchTimeout   time.Duration

	Executor     string
	KafkaBrokers []string
	KafkaTopic   string

	Agent AgentConfig

	HeartbeatInterval time.Duration
}

// RedisConfig holds the Redis event store connection.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// AgentConfig holds the reasoning collaborator settings.
type AgentConfig struct {
	APIKey    string
	URL       string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// fileConfig is the subset of settings that may come from CONFIG_FILE.
type fileConfig struct {
	AuthorizedUsers []string          `yaml:"authorized_users"`
	TradeLimitUSDC  string            `yaml:"trade_limit_usdc"`
	Tokens          map[string]string `yaml:"tokens"`
}

// Load reads environment variables and populates a Config struct.
// Values from CONFIG_FILE are applied first and environment variables win.
func Load() *Config {
	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		ServerName:      getEnv("SERVER_NAME", "Neynar Webhook Server"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		AuthorizedUsers: []string{"0xhardman"},
		TradeLimit:      decimal.NewFromInt(1),
		Tokens:          tokens.Polygon(),

		EventStore:         getEnv("EVENT_STORE", StoreMemory),
		EventStoreCapacity: mustInt("EVENT_STORE_CAPACITY", "10000"),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        mustInt("REDIS_DB", "0"),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "cast-gate:processed:"),
			TTL:       mustDuration("REDIS_TTL", "168h"),
		},

		DispatchMode:      getEnv("DISPATCH_MODE", DispatchSync),
		DispatchWorkers:   mustInt("DISPATCH_WORKERS", "2"),
		DispatchQueueSize: mustInt("DISPATCH_QUEUE_SIZE", "64"),
		DispatchTimeout:   mustDuration("DISPATCH_TIMEOUT", "2m"),

		Executor:     getEnv("EXECUTOR", ExecutorLog),
		KafkaBrokers: csv(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "trade_execution_requests"),

		Agent: AgentConfig{
			APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
			URL:       getEnv("ANTHROPIC_URL", "https://api.anthropic.com/v1/messages"),
			Model:     getEnv("ANTHROPIC_MODEL", "claude-3-7-sonnet-20250219"),
			MaxTokens: mustInt("ANTHROPIC_MAX_TOKENS", "4000"),
			Timeout:   mustDuration("AGENT_TIMEOUT", "90s"),
		},

		HeartbeatInterval: mustDuration("HEARTBEAT_INTERVAL", "1s"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Panicf("Invalid CONFIG_FILE: %v", err)
		}
	}

	if users := os.Getenv("AUTHORIZED_USERS"); users != "" {
		cfg.AuthorizedUsers = csv(users)
	}
	if raw := os.Getenv("TRADE_LIMIT_USDC"); raw != "" {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			log.Panicf("Invalid TRADE_LIMIT_USDC: %v", err)
		}
		cfg.TradeLimit = limit
	}

	if err := cfg.Validate(); err != nil {
		log.Panicf("Invalid configuration: %v", err)
	}
	return cfg
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	switch c.EventStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("EVENT_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.EventStore)
	}
	switch c.DispatchMode {
	case DispatchSync, DispatchAsync:
	default:
		return fmt.Errorf("DISPATCH_MODE must be %q or %q, got %q", DispatchSync, DispatchAsync, c.DispatchMode)
	}
	switch c.Executor {
	case ExecutorLog, ExecutorKafka:
	default:
		return fmt.Errorf("EXECUTOR must be %q or %q, got %q", ExecutorLog, ExecutorKafka, c.Executor)
	}
	if !c.TradeLimit.IsPositive() {
		return fmt.Errorf("trade limit must be positive, got %s", c.TradeLimit)
	}
	if c.EventStoreCapacity < 1 {
		return fmt.Errorf("EVENT_STORE_CAPACITY must be >= 1")
	}
	if c.DispatchWorkers < 1 || c.DispatchQueueSize < 1 {
		return fmt.Errorf("DISPATCH_WORKERS and DISPATCH_QUEUE_SIZE must be >= 1")
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if len(fc.AuthorizedUsers) > 0 {
		c.AuthorizedUsers = fc.AuthorizedUsers
	}
	if fc.TradeLimitUSDC != "" {
		limit, err := decimal.NewFromString(fc.TradeLimitUSDC)
		if err != nil {
			return fmt.Errorf("trade_limit_usdc: %w", err)
		}
		c.TradeLimit = limit
	}
	if len(fc.Tokens) > 0 {
		c.Tokens = fc.Tokens
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func mustInt(key, fallback string) int {
	v, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return v
}

func mustDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return d
}

func csv(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
