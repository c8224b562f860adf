// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS, empty allowed
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST

	LogLevel  string // LOG_LEVEL, default info
	LogFormat string // LOG_FORMAT, json or console

	// RabbitMQURL enables claim activity events when set.
	RabbitMQURL     string
	ActivityLogPath string // ACTIVITY_LOG_PATH, default logs/activity.log
}

// Load reads the configuration.  A .env file in the working directory is
// applied first when present; real environment variables win.  Every
// missing or malformed required key is reported in one error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	var l loader
	cfg := Config{
		Env:             l.must("APP_ENV"),
		Port:            l.must("APP_PORT"),
		DBUser:          l.must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          l.must("DB_HOST"),
		DBPort:          l.must("DB_PORT"),
		DBName:          l.must("DB_NAME"),
		JWTSecret:       l.must("JWT_SECRET"),
		AccessTTLMin:    l.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:  l.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:      l.mustInt("BCRYPT_COST"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LogFormat:       envStr("LOG_FORMAT", "json"),
		RabbitMQURL:     envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		ActivityLogPath: envStr("ACTIVITY_LOG_PATH", "logs/activity.log"),
	}
	if err := l.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loader collects problems instead of stopping at the first one.
type loader struct {
	missing []string
	invalid []string
}

func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.missing = append(l.missing, key)
	}
	return v
}

func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.invalid = append(l.invalid, fmt.Sprintf("%s=%q", key, s))
	}
	return n
}

func (l *loader) err() error {
	var errs []error
	if len(l.missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required env vars: %s", strings.Join(l.missing, ", ")))
	}
	if len(l.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid int env vars: %s", strings.Join(l.invalid, ", ")))
	}
	return errors.Join(errs...)
}
