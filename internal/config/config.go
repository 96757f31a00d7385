package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	SMTP     SMTPConfig
	Mail     MailConfig
	OTP      OTPConfig
	Password PasswordConfig
	Log      LogConfig
}

type AppConfig struct {
	Env  string
	Port string
}

// IsProduction reports whether the service runs with production defaults
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	FromName  string
	TLSPolicy string
}

// MailConfig selects how recovery codes are delivered: "smtp" or "log"
type MailConfig struct {
	Driver string
}

// OTPConfig tunes the recovery code store
type OTPConfig struct {
	Backend         string // memory or redis
	TTL             time.Duration
	MaxAttempts     int
	Retention       time.Duration
	SweepCron       string
	RequestsPerHour int
}

type PasswordConfig struct {
	BcryptCost int
}

type LogConfig struct {
	Level string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "recovery"),
			Password: getEnv("DB_PASSWORD", "recovery"),
			Name:     getEnv("DB_NAME", "recovery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", "mailpit"),
			Port:      getEnvInt("SMTP_PORT", 1025),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			From:      getEnv("SMTP_FROM", "noreply@recovery.local"),
			FromName:  getEnv("SMTP_FROM_NAME", "Account Recovery"),
			TLSPolicy: getEnv("SMTP_TLS_POLICY", "opportunistic"),
		},
		Mail: MailConfig{
			Driver: getEnv("MAIL_DRIVER", "smtp"),
		},
		OTP: OTPConfig{
			Backend:         getEnv("OTP_BACKEND", "memory"),
			TTL:             getEnvDuration("OTP_TTL", 10*time.Minute),
			MaxAttempts:     getEnvInt("OTP_MAX_ATTEMPTS", 3),
			Retention:       getEnvDuration("OTP_RETENTION", time.Hour),
			SweepCron:       getEnv("OTP_SWEEP_CRON", "*/5 * * * *"),
			RequestsPerHour: getEnvInt("OTP_REQUESTS_PER_HOUR", 3),
		},
		Password: PasswordConfig{
			BcryptCost: getEnvInt("PASSWORD_BCRYPT_COST", 10),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
