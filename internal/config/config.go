package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Режимы работы отправителя запросов.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
	ModeRecord = "record"
)

// Config описывает параметры CLI.
type Config struct {
	CLI struct {
		LogLevel string `yaml:"log_level" env:"CLOUDCTL_LOG_LEVEL"`
		Output   string `yaml:"output" env:"CLOUDCTL_OUTPUT"`
	} `yaml:"cli"`
	Cloud struct {
		Endpoint     string `yaml:"endpoint" env:"CLOUDCTL_ENDPOINT"`
		Subscription string `yaml:"subscription" env:"CLOUDCTL_SUBSCRIPTION"`
		Token        string `yaml:"token" env:"CLOUDCTL_TOKEN"`
	} `yaml:"cloud"`
	HTTP struct {
		TimeoutMS  int     `yaml:"timeout_ms" env:"CLOUDCTL_HTTP_TIMEOUT_MS"`
		MaxRetries int     `yaml:"max_retries" env:"CLOUDCTL_HTTP_MAX_RETRIES"`
		RPS        float64 `yaml:"rps" env:"CLOUDCTL_HTTP_RPS"`
		Burst      int     `yaml:"burst" env:"CLOUDCTL_HTTP_BURST"`
	} `yaml:"http"`
	Poll struct {
		IntervalSeconds int `yaml:"interval_seconds" env:"CLOUDCTL_POLL_INTERVAL_SECONDS"`
		TimeoutSeconds  int `yaml:"timeout_seconds" env:"CLOUDCTL_POLL_TIMEOUT_SECONDS"`
	} `yaml:"poll"`
	Recording struct {
		Mode     string `yaml:"mode" env:"CLOUDCTL_MODE"`
		Cassette string `yaml:"cassette" env:"CLOUDCTL_CASSETTE"`
	} `yaml:"recording"`
	History struct {
		Enabled       bool   `yaml:"enabled" env:"CLOUDCTL_HISTORY_ENABLED"`
		Path          string `yaml:"path" env:"CLOUDCTL_HISTORY_PATH"`
		RetentionDays int    `yaml:"retention_days" env:"CLOUDCTL_HISTORY_RETENTION_DAYS"`
	} `yaml:"history"`
	Web struct {
		ListenAddr       string `yaml:"listen_addr" env:"CLOUDCTL_WEB_LISTEN_ADDR"`
		ReadTimeoutMS    int    `yaml:"read_timeout_ms"`
		WriteTimeoutMS   int    `yaml:"write_timeout_ms"`
		ShutdownTimeoutS int    `yaml:"shutdown_timeout_s"`
		MaxBodyBytes     int64  `yaml:"max_body_bytes"`
	} `yaml:"web"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	var cfg Config
	cfg.CLI.LogLevel = "warn"
	cfg.CLI.Output = "json"
	cfg.Cloud.Endpoint = "https://management.azure.com"
	cfg.HTTP.TimeoutMS = 60000
	cfg.HTTP.MaxRetries = 4
	cfg.HTTP.RPS = 10
	cfg.HTTP.Burst = 5
	cfg.Poll.IntervalSeconds = 15
	cfg.Poll.TimeoutSeconds = 3600
	cfg.Recording.Mode = ModeLive
	cfg.History.Enabled = true
	cfg.History.Path = defaultHistoryPath()
	cfg.History.RetentionDays = 30
	cfg.Web.ListenAddr = "127.0.0.1:8089"
	cfg.Web.ReadTimeoutMS = 2000
	cfg.Web.WriteTimeoutMS = 5000
	cfg.Web.ShutdownTimeoutS = 5
	cfg.Web.MaxBodyBytes = 1 << 20
	return cfg
}

// DefaultPath возвращает путь к конфигу в домашнем каталоге.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cloudctl", "config.yaml")
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cloudctl-history.db")
	}
	return filepath.Join(home, ".cloudctl", "history.db")
}

// Load читает конфиг из файла YAML поверх значений по умолчанию и
// применяет переменные окружения CLOUDCTL_*. Отсутствующий файл по пути
// по умолчанию не является ошибкой.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- путь к конфигу задает пользователь.
		switch {
		case errors.Is(err, os.ErrNotExist) && path == DefaultPath():
		case err != nil:
			return cfg, err
		case len(data) == 0:
			return cfg, errors.New("config file is empty")
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений.
func (c Config) Validate() error {
	switch c.Recording.Mode {
	case ModeLive, ModeReplay, ModeRecord:
	default:
		return fmt.Errorf("recording.mode: unknown mode %q", c.Recording.Mode)
	}
	if c.Recording.Mode != ModeLive && c.Recording.Cassette == "" {
		return fmt.Errorf("recording.cassette is required in %s mode", c.Recording.Mode)
	}
	if c.Poll.IntervalSeconds < 0 || c.Poll.TimeoutSeconds < 0 {
		return errors.New("poll intervals must be non-negative")
	}
	return nil
}
