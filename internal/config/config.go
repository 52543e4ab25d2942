package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Config holds the application settings.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret   string
	TokenExpiry time.Duration

	HTTPAddr string
	LogLevel logrus.Level
	// Location decides which calendar day "today" is for the scheduled jobs.
	Location *time.Location

	GeneratorSchedule string
	ReminderSchedule  string
	// ManualGeneration enables POST /api/recurring/process.
	ManualGeneration bool

	SMTP SMTPConfig
}

type SMTPConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	Enabled            bool
	InsecureSkipVerify bool
}

// DSN is the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// LoadConfig reads the environment, loading .env first when it exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env file not found")
	}

	expiry, err := time.ParseDuration(getEnv("TOKEN_EXPIRY", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_EXPIRY: %w", err)
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	location, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	generatorSchedule := getEnv("GENERATOR_SCHEDULE", "0 3 * * *")
	reminderSchedule := getEnv("REMINDER_SCHEDULE", "0 9 * * *")
	for name, spec := range map[string]string{
		"GENERATOR_SCHEDULE": generatorSchedule,
		"REMINDER_SCHEDULE":  reminderSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	config := &Config{
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "controle_financeiro"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		JWTSecret:         getEnv("JWT_SECRET", "default-secret-key"),
		TokenExpiry:       expiry,
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		LogLevel:          level,
		Location:          location,
		GeneratorSchedule: generatorSchedule,
		ReminderSchedule:  reminderSchedule,
		ManualGeneration:  os.Getenv("ALLOW_MANUAL_GENERATION") == "true",
		SMTP: SMTPConfig{
			Host:               os.Getenv("SMTP_HOST"),
			Port:               smtpPort,
			User:               os.Getenv("SMTP_USER"),
			Password:           os.Getenv("SMTP_PASS"),
			Enabled:            os.Getenv("EMAIL_SENDER_ENABLED") == "true",
			InsecureSkipVerify: os.Getenv("INSECURE_SKIP_VERIFY") == "true",
		},
	}

	return config, nil
}

// getEnv returns the variable's value or defaultValue when it is unset or empty.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
