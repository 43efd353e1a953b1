package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPrefix         = "FEEDLOADER_"
	syncTimeoutMargin = 10 * time.Second
)

// Config представляет основную конфигурацию загрузчика лент.
// Содержит настройки сервера, логгера, приложения и базы данных.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Logger   LoggerConfig   `json:"logger"`
	App      AppConfig      `json:"app"`
	Database DatabaseConfig `json:"database"`
}

// ServerConfig содержит настройки HTTP-сервера приложения.
// RateLimit задает допустимое число запросов в секунду, 0 отключает ограничение.
type ServerConfig struct {
	Address        string   `json:"address"`
	RateLimit      float64  `json:"rate_limit"`
	RateBurst      int      `json:"rate_burst"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// LoggerConfig содержит настройки системы логирования.
// Пустые File и ErrorFile означают вывод в stdout и stderr.
type LoggerConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	ErrorFile string `json:"error_file"`
}

// FeedURL описывает одну удаленную ленту.
type FeedURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AppConfig содержит настройки загрузки и синхронизации лент.
type AppConfig struct {
	Feeds             []FeedURL `json:"feeds"`
	SyncInterval      string    `json:"sync_interval"`
	RequestTimeout    string    `json:"request_timeout"`
	MaxBodyBytes      int64     `json:"max_body_bytes"`
	DefaultItemsLimit int       `json:"default_items_limit"`
}

// DatabaseConfig содержит параметры подключения к PostgreSQL.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// DSN возвращает строку подключения к PostgreSQL в формате URI.
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// SyncIntervalDuration возвращает интервал синхронизации. Значение проверяется в Validate.
func (c AppConfig) SyncIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SyncInterval)
	return d
}

// RequestTimeoutDuration возвращает таймаут одного HTTP-запроса.
func (c AppConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// SyncTimeoutDuration возвращает предел синхронизации одной ленты.
// Всегда больше RequestTimeoutDuration на syncTimeoutMargin.
func (c AppConfig) SyncTimeoutDuration() time.Duration {
	return c.RequestTimeoutDuration() + syncTimeoutMargin
}

// Load загружает конфигурацию из JSON-файла и применяет переменные окружения.
// Перед чтением окружения подгружается файл .env, если он существует.
// Переменные FEEDLOADER_* имеют приоритет над файлом.
func Load(configPath string) (*Config, error) {
	cfg := New()
	fileData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := json.Unmarshal(fileData, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from file %s: %w", configPath, err)
	}
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Address, "SERVER_ADDRESS")
	setString(&c.Logger.Level, "LOG_LEVEL")
	setString(&c.App.SyncInterval, "SYNC_INTERVAL")
	setString(&c.App.RequestTimeout, "REQUEST_TIMEOUT")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Username, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.DBName, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	if v := os.Getenv(envPrefix + "DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sDB_PORT %q: %w", envPrefix, v, err)
		}
		c.Database.Port = port
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

// New создает новый экземпляр Config с значениями по умолчанию.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        ":8080",
			RateLimit:      10,
			RateBurst:      20,
			AllowedOrigins: []string{"*"},
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		App: AppConfig{
			Feeds:             []FeedURL{},
			SyncInterval:      "3m",
			RequestTimeout:    "30s",
			MaxBodyBytes:      5 << 20,
			DefaultItemsLimit: 50,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
	}
}

// Validate проверяет корректность конфигурации.
// Возвращает ошибку с описанием первой найденной проблемы.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is not set")
	}
	if c.Database.Username == "" {
		return fmt.Errorf("database username is not set")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database password is not set")
	}
	if c.App.DefaultItemsLimit <= 0 {
		return fmt.Errorf("app.default_items_limit must be a positive number")
	}
	if c.App.MaxBodyBytes <= 0 {
		return fmt.Errorf("app.max_body_bytes must be a positive number")
	}
	if len(c.App.Feeds) == 0 {
		return fmt.Errorf("app.feeds must not be empty")
	}
	names := make(map[string]bool, len(c.App.Feeds))
	for _, feed := range c.App.Feeds {
		u, err := url.ParseRequestURI(feed.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid url in app.feeds: %s", feed.URL)
		}
		if feed.Name == "" {
			return fmt.Errorf("feed name cannot be empty for url: %s", feed.URL)
		}
		if names[feed.Name] {
			return fmt.Errorf("duplicate feed name in app.feeds: %s", feed.Name)
		}
		names[feed.Name] = true
	}
	if d, err := time.ParseDuration(c.App.SyncInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid app.sync_interval: %q", c.App.SyncInterval)
	}
	if d, err := time.ParseDuration(c.App.RequestTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid app.request_timeout: %q", c.App.RequestTimeout)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	return nil
}
