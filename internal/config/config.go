package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Catalog  CatalogConfig
	Sweep    SweepConfig
	Rules    Rules
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
	// HoldTTL bounds how long a table can stay held by an in-flight
	// reservation before the hold expires on its own.
	HoldTTL time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topics   TopicConfig
	Enabled  bool
	MockMode bool
}

type TopicConfig struct {
	ReservationEvents string
	PenaltyEvents     string
}

type AuthConfig struct {
	JWTSecret     string
	TokenValidity time.Duration
	QRSecret      string
}

type CatalogConfig struct {
	OpenLibraryURL string
	CoverURL       string
	Timeout        time.Duration
}

type SweepConfig struct {
	// Cron specs (robfig/cron, standard 5-field format).
	BookSpec  string
	TableSpec string
}

// Rules holds the reservation and penalty policy numbers.
type Rules struct {
	LoanDays            int
	PenaltyPoints       int
	MaxActiveBookLoans  int
	PenaltyResetDays    int
	PenaltyGate         int
	ReservationOpenHour int
	ReservationLastHour int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "library_user"),
			Password:     getEnv("DB_PASSWORD", "library_pass"),
			Database:     getEnv("DB_NAME", "library"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			HoldTTL: time.Duration(getEnvInt("TABLE_HOLD_TTL_SECONDS", 30)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID:  getEnv("KAFKA_GROUP_ID", "library-service-group"),
			Enabled:  getEnvBool("KAFKA_ENABLED", true),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
			Topics: TopicConfig{
				ReservationEvents: getEnv("KAFKA_TOPIC_RESERVATIONS", "reservation-events"),
				PenaltyEvents:     getEnv("KAFKA_TOPIC_PENALTIES", "penalty-events"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "dev-only-secret"),
			TokenValidity: time.Duration(getEnvInt("LOGIN_VALIDITY_DAYS", 30)) * 24 * time.Hour,
			QRSecret:      getEnv("QR_SECRET_KEY", "dev-only-qr-secret"),
		},
		Catalog: CatalogConfig{
			OpenLibraryURL: getEnv("OPENLIBRARY_URL", "https://openlibrary.org"),
			CoverURL:       getEnv("OPENLIBRARY_COVER_URL", "https://covers.openlibrary.org"),
			Timeout:        time.Duration(getEnvInt("OPENLIBRARY_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Sweep: SweepConfig{
			BookSpec:  getEnv("SWEEP_BOOK_SPEC", "*/5 * * * *"),
			TableSpec: getEnv("SWEEP_TABLE_SPEC", "* * * * *"),
		},
		Rules: Rules{
			LoanDays:            getEnvInt("RULE_LOAN_DAYS", 14),
			PenaltyPoints:       getEnvInt("RULE_PENALTY_POINTS", 5),
			MaxActiveBookLoans:  getEnvInt("RULE_MAX_ACTIVE_LOANS", 5),
			PenaltyResetDays:    getEnvInt("RULE_PENALTY_RESET_DAYS", 10),
			PenaltyGate:         getEnvInt("RULE_PENALTY_GATE", 10),
			ReservationOpenHour: getEnvInt("RULE_TABLE_OPEN_HOUR", 9),
			ReservationLastHour: getEnvInt("RULE_TABLE_LAST_HOUR", 20),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
