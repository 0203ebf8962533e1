// Package config предоставялет структуры и функции для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	AdminToken      string `yaml:"admin_token" env:"ADMIN_TOKEN"`
	Storage         `yaml:"storage"`
	HTTPServer      `yaml:"http_server"`
	JWTToken        `yaml:"jwttoken"`
	RedisConnection `yaml:"redis_connection"`
	RabbitMQ        `yaml:"rabbitmq"`
	SMTP            `yaml:"smtp"`
	Rollover        `yaml:"rollover"`
}

// Storage структура для настройки хранилища пользователей.
// Driver принимает значения "postgres" или "memory".
type Storage struct {
	Driver                  string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":5000"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"10"`
	RateBurst   int           `yaml:"rate_burst" env-default:"20"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"720h"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кеш профилей.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	ProfileTTL   time.Duration `yaml:"profile_ttl" env-default:"10m"`
}

// RabbitMQ структура для настройки подключения к брокеру.
// Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP структура для настройки отправки писем. From и FromName задают
// отправителя, по умолчанию это SMTPUser.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
	FromName string `yaml:"from_name" env:"SMTP_FROM_NAME" env-default:"Slot Booking"`
}

// Rollover структура для настройки ежемесячной смены слотов
type Rollover struct {
	Enabled         bool          `yaml:"enabled" env:"ROLLOVER_ENABLED"`
	Schedule        string        `yaml:"schedule" env:"ROLLOVER_SCHEDULE" env-default:"0 0 1 * *"`
	Timezone        string        `yaml:"timezone" env:"ROLLOVER_TIMEZONE" env-default:"UTC"`
	DefaultSlot     string        `yaml:"default_slot" env-default:"6-7AM"`
	Workers         int           `yaml:"workers" env-default:"8"`
	ConflictRetries int           `yaml:"conflict_retries" env-default:"3"`
	RunOnStart      bool          `yaml:"run_on_start"`
	ClaimLease      time.Duration `yaml:"claim_lease" env:"ROLLOVER_CLAIM_LEASE" env-default:"1h"`
}

// Location возвращает часовой пояс, в котором считается расчётный период.
func (r Rollover) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config.Rollover.Location: %w", err)
	}
	return loc, nil
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH.
// Переменные из .env в рабочем каталоге подхватываются, если файл есть.
func MustLoad() *Config {
	_ = godotenv.Load()
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Driver {
	case "postgres":
		if c.StorageConnectionString == "" {
			return fmt.Errorf("storage_connection_string is required for postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	if c.JWTSecretKey == "" {
		return fmt.Errorf("jwt_secret_key is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("rollover workers must be positive, got %d", c.Workers)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  MigrationsPath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"Redis:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"Rollover:\n"+
			"  Schedule: %s\n"+
			"  Timezone: %s\n"+
			"  DefaultSlot: %s\n"+
			"  Workers: %d\n",
		c.Env,
		c.Driver,
		c.MigrationsPath,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.AddressRedis,
		c.DB,
		c.Schedule,
		c.Timezone,
		c.DefaultSlot,
		c.Workers,
	)
}
