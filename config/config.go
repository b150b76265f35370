package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TOURBOOKING_"

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Booking BookingConfig `yaml:"booking"`
	Admin   AdminConfig   `yaml:"admin"`
	Log     LogConfig     `yaml:"log"`
	Worker  WorkerConfig  `yaml:"worker"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerDir     string   `yaml:"swagger_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SecureCookies  bool     `yaml:"secure_cookies"`
}

// StorageConfig selects the persistence backend: memory, file, sqlite or postgres.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	FilePath string         `yaml:"file_path"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Database DatabaseConfig `yaml:"database"`
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig is optional; an empty Addr disables the distributed lock and list cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// KafkaConfig is optional; no brokers disables event publishing.
type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	GroupID            string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.BookingEventsTopic != ""
}

type BookingConfig struct {
	Timezone               string `yaml:"timezone"`
	LockTTLSeconds         int    `yaml:"lock_ttl_seconds"`
	LockWaitMillis         int    `yaml:"lock_wait_millis"`
	DeparturesCacheSeconds int    `yaml:"departures_cache_seconds"`
}

func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(b.Timezone)
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) LockWait() time.Duration {
	return time.Duration(b.LockWaitMillis) * time.Millisecond
}

func (b BookingConfig) DeparturesCacheTTL() time.Duration {
	return time.Duration(b.DeparturesCacheSeconds) * time.Second
}

// AdminConfig holds the shared admin secret. PasswordHash (bcrypt) wins over Password.
type AdminConfig struct {
	Password      string `yaml:"password"`
	PasswordHash  string `yaml:"password_hash"`
	SessionSecret string `yaml:"session_secret"`
	SessionHours  int    `yaml:"session_hours"`
}

func (a AdminConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionHours) * time.Hour
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type WorkerConfig struct {
	PruneIntervalMinutes int `yaml:"prune_interval_minutes"`
}

func (w WorkerConfig) PruneInterval() time.Duration {
	return time.Duration(w.PruneIntervalMinutes) * time.Minute
}

func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Address: ":3000", SwaggerDir: "docs"},
		Storage: StorageConfig{Driver: "memory", FilePath: "data/tourbooking.json", SQLite: SQLiteConfig{DSN: "file:tourbooking.db"}},
		Kafka:   KafkaConfig{GroupID: "tourbooking-audit"},
		Booking: BookingConfig{LockTTLSeconds: 10, LockWaitMillis: 3000, DeparturesCacheSeconds: 0},
		Admin:   AdminConfig{SessionHours: 12},
		Log:     LogConfig{Level: "info", Format: "text"},
		Worker:  WorkerConfig{PruneIntervalMinutes: 60},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, then applies
// TOURBOOKING_* variables from the environment and an optional .env file.
// A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var invalid []string

	setString := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := lookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				invalid = append(invalid, envPrefix+key)
				return
			}
			*dst = n
		}
	}

	setString("HTTP_ADDRESS", &c.HTTP.Address)
	setString("STORAGE_DRIVER", &c.Storage.Driver)
	setString("STORAGE_FILE_PATH", &c.Storage.FilePath)
	setString("SQLITE_DSN", &c.Storage.SQLite.DSN)
	setString("DB_HOST", &c.Storage.Database.Host)
	setInt("DB_PORT", &c.Storage.Database.Port)
	setString("DB_USER", &c.Storage.Database.User)
	setString("DB_PASSWORD", &c.Storage.Database.Password)
	setString("DB_NAME", &c.Storage.Database.Name)
	setString("DB_SSLMODE", &c.Storage.Database.SSLMode)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setString("KAFKA_TOPIC", &c.Kafka.BookingEventsTopic)
	if v, ok := lookupEnv("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = splitList(v)
	}
	setString("TIMEZONE", &c.Booking.Timezone)
	setString("ADMIN_PASSWORD", &c.Admin.Password)
	setString("ADMIN_PASSWORD_HASH", &c.Admin.PasswordHash)
	setString("SESSION_SECRET", &c.Admin.SessionSecret)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("LOG_FILE", &c.Log.File)
	setInt("PRUNE_INTERVAL_MINUTES", &c.Worker.PruneIntervalMinutes)

	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return errors.New("admin password is not configured")
	}
	if c.Admin.SessionSecret == "" {
		return errors.New("admin session secret is not configured")
	}
	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Booking.Timezone, err)
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
