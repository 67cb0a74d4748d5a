// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type HitEventsCfg struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	GroupID   string
	QueueSize int
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	CounterKey     string
	StoreOpTimeout time.Duration
	Redis          RedisCfg
	Metrics        MetricsCfg
	HitEvents      HitEventsCfg
}

// FromEnv reads the process environment. Values from a .env file in the
// working directory fill in anything not already set.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("ADDR", ":8000"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		CounterKey:     getenv("COUNTER_KEY", "hits"),
		StoreOpTimeout: getduration("STORE_OP_TIMEOUT", time.Second),
		Redis: RedisCfg{
			Addr:     getenv("REDIS_ADDR", "redis:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getint("REDIS_DB", 0),
			PoolSize: getint("REDIS_POOL_SIZE", 64),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
		HitEvents: HitEventsCfg{
			Enabled:   getbool("HIT_EVENTS_ENABLED", false),
			Brokers:   split(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:     getenv("KAFKA_TOPIC", "hit-events"),
			GroupID:   getenv("KAFKA_GROUP_ID", "hit-auditor"),
			QueueSize: getint("HIT_EVENTS_QUEUE", 1024),
		},
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

// "a:9092, b:9092" -> ["a:9092" "b:9092"]
func split(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
