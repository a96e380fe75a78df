package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v3"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"homework_notifier/internal/domain"
)

const (
	DefaultPath = "config.yaml"
	PathEnv     = "NOTIFIER_CONFIG"
)

type Config struct {
	Practicum PracticumConfig `yaml:"practicum"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Poll      PollConfig      `yaml:"poll"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Database  DatabaseConfig  `yaml:"database"`
	LogLevel  string          `yaml:"log_level"`
	LogFile   string          `yaml:"log_file"`
}

type PracticumConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type TelegramConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Token         string        `yaml:"token"`
	ChatID        string        `yaml:"chat_id"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type PollConfig struct {
	Interval     time.Duration `yaml:"interval"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
}

// RabbitMQConfig enables verdict events when URL is set.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

// DatabaseConfig enables the verdict history when Host is set.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PathFromEnv returns the config file path from NOTIFIER_CONFIG or the default.
func PathFromEnv() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path, expanding ${VAR} references. A missing
// file is not an error: credentials then come from the environment alone.
// Invalid configuration is reported as domain.ErrConfiguration.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", domain.ErrConfiguration, err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Practicum.Token == "" {
		c.Practicum.Token = os.Getenv("PRACTICUM_TOKEN")
	}
	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
	}
	if c.Telegram.ChatID == "" {
		c.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}
}

func (c *Config) setDefaults() {
	if c.Practicum.BaseURL == "" {
		c.Practicum.BaseURL = "https://praktikum.yandex.ru/api"
	}
	if c.Practicum.Timeout == 0 {
		c.Practicum.Timeout = 30 * time.Second
	}
	if c.Practicum.Retry.MaxAttempts == 0 {
		c.Practicum.Retry.MaxAttempts = 3
	}
	if c.Practicum.Retry.InitialBackoff == 0 {
		c.Practicum.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Practicum.Retry.MaxBackoff == 0 {
		c.Practicum.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Telegram.Endpoint == "" {
		c.Telegram.Endpoint = "https://api.telegram.org/bot%s/%s"
	}
	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = 30 * time.Second
	}
	if c.Telegram.RetryAttempts == 0 {
		c.Telegram.RetryAttempts = 3
	}
	if c.Telegram.RetryDelay == 0 {
		c.Telegram.RetryDelay = 1 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 5 * time.Minute
	}
	if c.Poll.ErrorBackoff == 0 {
		c.Poll.ErrorBackoff = 5 * time.Second
	}
	if c.Poll.CycleTimeout == 0 {
		c.Poll.CycleTimeout = 2 * time.Minute
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "homework_notifier"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "verdicts"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "homework_verdicts"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Practicum,
		validation.Field(&c.Practicum.BaseURL, validation.Required),
		validation.Field(&c.Practicum.Token, validation.Required),
	); err != nil {
		return fmt.Errorf("practicum: %w", err)
	}
	if err := validation.ValidateStruct(&c.Practicum.Retry,
		validation.Field(&c.Practicum.Retry.MaxAttempts, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("practicum retry: %w", err)
	}

	if err := validation.ValidateStruct(&c.Telegram,
		validation.Field(&c.Telegram.Token, validation.Required),
		validation.Field(&c.Telegram.ChatID, validation.Required),
		validation.Field(&c.Telegram.RetryAttempts, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	if err := validation.ValidateStruct(&c.Poll,
		validation.Field(&c.Poll.Interval, validation.Required),
		validation.Field(&c.Poll.ErrorBackoff, validation.Required),
	); err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if c.Poll.ErrorBackoff >= c.Poll.Interval {
		return errors.New("poll: error_backoff must be shorter than interval")
	}

	if c.Database.Enabled() {
		if err := validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.User, validation.Required),
			validation.Field(&c.Database.DBName, validation.Required),
		); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	return validation.Validate(c.LogLevel, validation.In("debug", "info", "warn", "error"))
}
