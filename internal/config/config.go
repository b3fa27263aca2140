package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"stockledger/pkg/utils"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the ledger service.
type Config struct {
	Port string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBSchemaPath   string
	DBMaxOpenConns int

	JWTSecret string
	JWTTTL    time.Duration

	CORSAllowedOrigins []string
	OperationTimeout   time.Duration

	LogLevel  string
	LogPretty bool

	KafkaBrokers []string
	KafkaTopic   string

	GinMode string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:               utils.Getenv("PORT", "8080"),
		DBHost:             utils.Getenv("DB_HOST", "localhost"),
		DBPort:             utils.Getenv("DB_PORT", "5432"),
		DBUser:             utils.Getenv("DB_USER", "stockledger"),
		DBPassword:         utils.Getenv("DB_PASSWORD", "stockledger"),
		DBName:             utils.Getenv("DB_NAME", "stockledger"),
		DBSSLMode:          utils.Getenv("DB_SSLMODE", "disable"),
		DBSchemaPath:       utils.Getenv("DB_SCHEMA_PATH", ""),
		DBMaxOpenConns:     utils.GetenvInt("DB_MAX_OPEN_CONNS", 20),
		JWTSecret:          utils.Getenv("JWT_SECRET", ""),
		JWTTTL:             utils.GetenvDuration("JWT_TTL", 12*time.Hour),
		CORSAllowedOrigins: utils.SplitList(utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		OperationTimeout:   utils.GetenvDuration("OPERATION_TIMEOUT", 5*time.Second),
		LogLevel:           utils.Getenv("LOG_LEVEL", "info"),
		LogPretty:          utils.GetenvBool("LOG_PRETTY", true),
		KafkaBrokers:       utils.SplitList(utils.Getenv("KAFKA_BROKERS", "")),
		KafkaTopic:         utils.Getenv("KAFKA_TOPIC", "inventory-ledger"),
		GinMode:            utils.Getenv("GIN_MODE", "release"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DBHost == "" || c.DBName == "" {
		return fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("OPERATION_TIMEOUT must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// DSN renders a postgres:// URL for lib/pq; credentials are percent-encoded.
func (c *Config) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return dsn.String()
}
