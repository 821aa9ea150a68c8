// Package config загружает настройки клиента и координатора из файла,
// переменных окружения GOPHSYNC_* и флагов командной строки.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/validation"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "GOPHSYNC"

// Config полная конфигурация
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	DeviceID  string          `mapstructure:"device_id"`
	UserID    string          `mapstructure:"user_id"`
	ServerURL string          `mapstructure:"server_url"`
	DBPath    string          `mapstructure:"db_path"`
	Server    ServerConfig    `mapstructure:"server"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Validator ValidatorConfig `mapstructure:"validator"`
}

// SyncConfig настройки движка синхронизации
type SyncConfig struct {
	Strategy       models.Strategy `mapstructure:"strategy"`
	Interval       time.Duration   `mapstructure:"interval"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	ProbeInterval  time.Duration   `mapstructure:"probe_interval"`
}

// ValidatorConfig настройки проверки целостности
type ValidatorConfig struct {
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // auto, text, json
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ServerConfig настройки координатора
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	DBPath          string        `mapstructure:"db_path"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	PullLimit       int           `mapstructure:"pull_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		DBPath:    "gophsync.db",
		Sync: SyncConfig{
			Interval:       30 * time.Second,
			RequestTimeout: 10 * time.Second,
			Strategy:       models.StrategyMerge,
			ProbeInterval:  15 * time.Second,
		},
		Validator: ValidatorConfig{
			MaxClockSkew: time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "auto",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Address:         ":8080",
			DBPath:          "coordinator.db",
			RateLimit:       600,
			RateWindow:      time.Minute,
			PullLimit:       500,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// SetDefaults регистрирует значения по умолчанию в vip.
// Ключи без значения по умолчанию не видны AutomaticEnv, поэтому
// регистрируются все поля, включая пустые строки.
func SetDefaults(vip *viper.Viper) {
	def := Default()

	vip.SetDefault("device_id", def.DeviceID)
	vip.SetDefault("user_id", def.UserID)
	vip.SetDefault("server_url", def.ServerURL)
	vip.SetDefault("db_path", def.DBPath)

	vip.SetDefault("sync.interval", def.Sync.Interval)
	vip.SetDefault("sync.request_timeout", def.Sync.RequestTimeout)
	vip.SetDefault("sync.strategy", string(def.Sync.Strategy))
	vip.SetDefault("sync.probe_interval", def.Sync.ProbeInterval)

	vip.SetDefault("validator.max_clock_skew", def.Validator.MaxClockSkew)

	vip.SetDefault("log.level", def.Log.Level)
	vip.SetDefault("log.format", def.Log.Format)
	vip.SetDefault("log.file", def.Log.File)
	vip.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	vip.SetDefault("log.max_backups", def.Log.MaxBackups)

	vip.SetDefault("server.address", def.Server.Address)
	vip.SetDefault("server.db_path", def.Server.DBPath)
	vip.SetDefault("server.rate_limit", def.Server.RateLimit)
	vip.SetDefault("server.rate_window", def.Server.RateWindow)
	vip.SetDefault("server.pull_limit", def.Server.PullLimit)
	vip.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)
}

// Load читает конфигурацию. fileLocation может быть пустым:
// тогда используются только значения по умолчанию, окружение и флаги,
// уже привязанные к vip.
func Load(fileLocation string, vip *viper.Viper) (*Config, error) {
	SetDefaults(vip)
	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	if fileLocation != "" {
		vip.SetConfigFile(fileLocation)
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", fileLocation, err)
		}
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		strategyHookFunc(),
	)

	conf := Default()
	if err := vip.Unmarshal(&conf, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &conf, nil
}

// strategyHookFunc разбирает стратегию разрешения конфликтов
func strategyHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(models.Strategy("")) || from.Kind() != reflect.String {
			return data, nil
		}
		return models.ParseStrategy(strings.ToLower(data.(string))), nil
	}
}

// ValidateClient проверяет настройки, обязательные для клиента.
// Пустой DeviceID допустим: клиент генерирует и сохраняет его сам.
func (c *Config) ValidateClient() error {
	var errs []error

	if c.DeviceID != "" {
		if err := validation.ValidateDeviceID(c.DeviceID); err != nil {
			errs = append(errs, fmt.Errorf("device_id: %w", err))
		}
	}
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server_url is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync.interval must be positive"))
	}
	if c.Sync.RequestTimeout <= 0 {
		errs = append(errs, errors.New("sync.request_timeout must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateServer проверяет настройки координатора
func (c *Config) ValidateServer() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.DBPath == "" {
		errs = append(errs, errors.New("server.db_path is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		errs = append(errs, errors.New("server.rate_window must be positive"))
	}

	return errors.Join(errs...)
}
