package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	DocumentCacheTTL time.Duration

	// Kafka
	KafkaBrokers    []string
	KafkaGroupID    string
	RawTopic        string
	ParsedTopic     string
	DeadLetterTopic string

	// Parser
	ParserVersion   string
	ProfilePath     string
	TerminologyPath string
	DLPRulesPath    string
	RedactNotes     bool
	AllowedSources  []string
	IngestRetention time.Duration

	// Delivery
	DeliveryURL          string
	DeliveryTimeout      time.Duration
	DeliveryAttempts     int
	DeliveryTokenURL     string
	DeliveryClientID     string
	DeliveryClientSecret string
	DeliveryScopes       []string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 8*1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 40),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "medrecords"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "medrecords"),
		PostgresDB:       getEnv("POSTGRES_DB", "medrecords"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getIntEnv("REDIS_DB", 0),
		DocumentCacheTTL: getDuration("DOCUMENT_CACHE_TTL", 24*time.Hour),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "medrecords-normalizer"),
		RawTopic:        getEnv("KAFKA_RAW_TOPIC", "records.raw"),
		ParsedTopic:     getEnv("KAFKA_PARSED_TOPIC", "records.parsed"),
		DeadLetterTopic: getEnv("KAFKA_DLQ_TOPIC", "records.dlq"),

		ParserVersion:   getEnv("PARSER_VERSION", "2.0.0"),
		ProfilePath:     getEnv("PATIENT_PROFILE_PATH", ""),
		TerminologyPath: getEnv("TERMINOLOGY_PATH", ""),
		DLPRulesPath:    getEnv("DLP_RULES_PATH", ""),
		RedactNotes:     getBoolEnv("REDACT_NOTES", false),
		AllowedSources:  getStringSliceEnv("ALLOWED_SOURCES", []string{"ocr", "pdf", "upload", "cli"}),
		IngestRetention: getDuration("INGEST_RETENTION", 72*time.Hour),

		DeliveryURL:          getEnv("DELIVERY_URL", ""),
		DeliveryTimeout:      getDuration("DELIVERY_TIMEOUT", 10*time.Second),
		DeliveryAttempts:     getIntEnv("DELIVERY_ATTEMPTS", 3),
		DeliveryTokenURL:     getEnv("DELIVERY_TOKEN_URL", ""),
		DeliveryClientID:     getEnv("DELIVERY_CLIENT_ID", ""),
		DeliveryClientSecret: getEnv("DELIVERY_CLIENT_SECRET", ""),
		DeliveryScopes:       getStringSliceEnv("DELIVERY_SCOPES", nil),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
