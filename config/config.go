package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host        string
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	CredentialsFile string

	Database  DatabaseConfig
	Ledger    LedgerConfig
	Reconcile ReconcileConfig
}

type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	Path            string // sqlite file, ":memory:" allowed
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LedgerConfig struct {
	Backend  string // http, formance or memory
	BaseURL  string
	Timeout  time.Duration
	Formance FormanceConfig
}

type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

type ReconcileConfig struct {
	AutoEnroll bool
	// WaitingTTL is how long a reserved bet may wait for confirmation.
	// Zero disables expiry.
	WaitingTTL  time.Duration
	ExpiryEvery time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ledgerTimeout, err := getEnvDuration("LEDGER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	waitingTTL, err := getEnvDuration("WAITING_BET_TTL", 0)
	if err != nil {
		return nil, err
	}
	expiryEvery, err := getEnvDuration("WAITING_BET_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:            getEnvString("HOST", "127.0.0.1"),
		Port:            getEnvString("PORT", "3000"),
		Environment:     getEnvString("APP_ENV", "production"),
		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		LogFormat:       getEnvString("LOG_FORMAT", "json"),
		CredentialsFile: getEnvString("CREDENTIALS_FILE", "credentials.yaml"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnvString("DB_DRIVER", "postgres")),
			Host:            getEnvString("DB_HOST", "127.0.0.1"),
			Port:            getEnvString("DB_PORT", "5432"),
			User:            os.Getenv("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            os.Getenv("DB_NAME"),
			SSLMode:         getEnvString("DB_SSLMODE", "disable"),
			Path:            getEnvString("DB_PATH", "journal.db"),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
		},
		Ledger: LedgerConfig{
			Backend: strings.ToLower(getEnvString("LEDGER_BACKEND", "http")),
			BaseURL: os.Getenv("LEDGER_API_URL"),
			Timeout: ledgerTimeout,
			Formance: FormanceConfig{
				StackURL:     os.Getenv("FORMANCE_STACK_URL"),
				ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
				ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
				LedgerName:   getEnvString("FORMANCE_LEDGER", "seamless-wallet"),
			},
		},
		Reconcile: ReconcileConfig{
			AutoEnroll:  getEnvBool("AUTO_ENROLL_PLAYERS", false),
			WaitingTTL:  waitingTTL,
			ExpiryEvery: expiryEvery,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Ledger.Backend {
	case "http":
		if c.Ledger.BaseURL == "" {
			return fmt.Errorf("LEDGER_API_URL is required for the http ledger backend")
		}
	case "formance":
		f := c.Ledger.Formance
		if f.StackURL == "" || f.ClientID == "" || f.ClientSecret == "" {
			return fmt.Errorf("FORMANCE_STACK_URL, FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET are required for the formance ledger backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	if c.Reconcile.WaitingTTL < 0 || c.Reconcile.ExpiryEvery <= 0 {
		return fmt.Errorf("WAITING_BET_TTL must not be negative and WAITING_BET_SWEEP_INTERVAL must be positive")
	}
	if c.Ledger.Timeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be positive, got %v", c.Ledger.Timeout)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
