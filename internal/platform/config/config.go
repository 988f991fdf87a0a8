package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config groups all runtime configuration read at startup.
type Config struct {
	Server      Server
	Database    Database
	Kafka       Kafka
	Redis       RedisConfig
	ObjectStore ObjectStore
	Pipeline    Pipeline
	Telemetry   Telemetry
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string
	Environment       string
	LogLevel          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Database configures the Postgres pool. An empty URL selects the in-memory store.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Kafka configures the creation-event producer. Empty Brokers disables publishing.
type Kafka struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// RedisConfig configures the optional document cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DocumentTTL  time.Duration
}

// ObjectStore configures raw identity-document uploads. Empty Endpoint disables them.
type ObjectStore struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Pipeline tunes the submission pipeline.
type Pipeline struct {
	NotifyTimeout          time.Duration
	NotifyFailureThreshold int
	NotifyCooldown         time.Duration
	// BirthCertificateRender names the render policy used by multipart
	// submissions: render_at_insert or render_at_retrieval.
	BirthCertificateRender string
}

// Telemetry configures tracing. Empty Endpoint keeps spans in-process.
type Telemetry struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
	Sampler     string
	SamplerArg  string
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:              envString("CIVREG_ADDR", ":8080"),
			Environment:       envString("ENVIRONMENT", "development"),
			LogLevel:          envString("LOG_LEVEL", "info"),
			ReadHeaderTimeout: envDuration("READ_HEADER_TIMEOUT", 10*time.Second),
			ShutdownTimeout:   envDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: Kafka{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Topic:           envString("KAFKA_TOPIC", "certificates"),
			Acks:            envString("KAFKA_ACKS", "all"),
			Retries:         envInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			DocumentTTL:  envDuration("DOCUMENT_CACHE_TTL", 24*time.Hour),
		},
		ObjectStore: ObjectStore{
			Endpoint:  os.Getenv("OBJECT_STORE_ENDPOINT"),
			AccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
			SecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),
			Bucket:    envString("OBJECT_STORE_BUCKET", "aadhaar-uploads"),
			UseSSL:    os.Getenv("OBJECT_STORE_USE_SSL") == "true",
		},
		Pipeline: Pipeline{
			NotifyTimeout:          envDuration("NOTIFY_TIMEOUT", 5*time.Second),
			NotifyFailureThreshold: envInt("NOTIFY_FAILURE_THRESHOLD", 5),
			NotifyCooldown:         envDuration("NOTIFY_COOLDOWN", 30*time.Second),
			BirthCertificateRender: envString("BIRTH_CERTIFICATE_RENDER_POLICY", "render_at_insert"),
		},
		Telemetry: Telemetry{
			ServiceName: envString("OTEL_SERVICE_NAME", "civreg"),
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
			Sampler:     os.Getenv("OTEL_TRACES_SAMPLER"),
			SamplerArg:  os.Getenv("OTEL_TRACES_SAMPLER_ARG"),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
