package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AWS      AWSConfig      `yaml:"aws"`
	Auth     AuthConfig     `yaml:"auth"`
	APNS     APNSConfig     `yaml:"apns"`
	Feed     FeedConfig     `yaml:"feed"`
	Chat     ChatConfig     `yaml:"chat"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the chat fan-out relay configuration. Empty Addr keeps fan-out in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AWSConfig holds object storage configuration
type AWSConfig struct {
	Region    string        `yaml:"region"`
	S3Bucket  string        `yaml:"s3_bucket"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"`
	URLTTL    time.Duration `yaml:"url_ttl"`
}

// AuthConfig holds the auth provider token settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// APNSConfig holds push notification settings. Empty CertFile disables pushes.
type APNSConfig struct {
	CertFile     string `yaml:"cert_file"`
	CertPassword string `yaml:"cert_password"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
}

// FeedConfig holds feed limits
type FeedConfig struct {
	CandidateLimit        int           `yaml:"candidate_limit"`
	ResponsesPerCandidate int           `yaml:"responses_per_candidate"`
	RecencyWindow         time.Duration `yaml:"recency_window"`
}

// ChatConfig holds chat limits
type ChatConfig struct {
	SubscriberBuffer int `yaml:"subscriber_buffer"`
	MaxMessageLength int `yaml:"max_message_length"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, then applies .env and environment overrides.
// A missing file is not an error: defaults and environment are enough for local runs.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides file values with non-empty environment variables
func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.AWS.Region, "AWS_REGION")
	setString(&c.AWS.S3Bucket, "AWS_S3_BUCKET")
	setString(&c.AWS.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.AWS.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.AWS.Endpoint, "AWS_ENDPOINT_URL")
	setString(&c.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setString(&c.Auth.Issuer, "AUTH_ISSUER")
	setString(&c.APNS.CertPassword, "APNS_CERT_PASSWORD")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 15 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.AWS.URLTTL <= 0 {
		c.AWS.URLTTL = time.Hour
	}
	if c.Feed.CandidateLimit <= 0 {
		c.Feed.CandidateLimit = 20
	}
	if c.Feed.ResponsesPerCandidate <= 0 {
		c.Feed.ResponsesPerCandidate = 7
	}
	if c.Feed.RecencyWindow <= 0 {
		c.Feed.RecencyWindow = 7 * 24 * time.Hour
	}
	if c.Chat.SubscriberBuffer <= 0 {
		c.Chat.SubscriberBuffer = 32
	}
	if c.Chat.MaxMessageLength <= 0 {
		c.Chat.MaxMessageLength = 2000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks settings that have no sensible default
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
