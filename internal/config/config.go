package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sandeepkv93/taskboard/internal/storage"
)

const EnvPrefix = "TASKBOARD"

type Config struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Reminder ReminderConfig `mapstructure:"reminder" yaml:"reminder"`
	UI       UIConfig       `mapstructure:"ui" yaml:"ui"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Path    string      `mapstructure:"path" yaml:"path"`
	Key     string      `mapstructure:"key" yaml:"key"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type ReminderConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval" yaml:"scan_interval"`
	Desktop      bool          `mapstructure:"desktop" yaml:"desktop"`
	Chime        string        `mapstructure:"chime" yaml:"chime"`
	Timezone     string        `mapstructure:"timezone" yaml:"timezone"`
}

type UIConfig struct {
	ClockInterval   time.Duration `mapstructure:"clock_interval" yaml:"clock_interval"`
	SchedulerBuffer int           `mapstructure:"scheduler_buffer" yaml:"scheduler_buffer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: storage.BackendSQLite,
			Key:     storage.DefaultTasksKey,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Reminder: ReminderConfig{
			ScanInterval: 10 * time.Second,
			Chime:        "bell",
		},
		UI: UIConfig{
			ClockInterval:   time.Second,
			SchedulerBuffer: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

type LoadOptions struct {
	// File is an explicit config path; a missing explicit file is an error.
	File string
	// EnvFile is loaded into the environment first. Defaults to ".env".
	EnvFile string
}

func Load(opts LoadOptions) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.File
	if path == "" {
		if candidate := DefaultConfigPath(); candidate != "" {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("storage.redis.addr", d.Storage.Redis.Addr)
	v.SetDefault("storage.redis.password", d.Storage.Redis.Password)
	v.SetDefault("storage.redis.db", d.Storage.Redis.DB)
	v.SetDefault("reminder.scan_interval", d.Reminder.ScanInterval)
	v.SetDefault("reminder.desktop", d.Reminder.Desktop)
	v.SetDefault("reminder.chime", d.Reminder.Chime)
	v.SetDefault("reminder.timezone", d.Reminder.Timezone)
	v.SetDefault("ui.clock_interval", d.UI.ClockInterval)
	v.SetDefault("ui.scheduler_buffer", d.UI.SchedulerBuffer)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

func (c Config) Validate() error {
	if !storage.IsKnownBackend(c.Storage.Backend) {
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("config: storage key is required")
	}
	if c.Reminder.ScanInterval <= 0 {
		return fmt.Errorf("config: reminder scan interval must be positive, got %s", c.Reminder.ScanInterval)
	}
	if c.UI.ClockInterval <= 0 {
		return fmt.Errorf("config: clock interval must be positive, got %s", c.UI.ClockInterval)
	}
	if c.UI.SchedulerBuffer <= 0 {
		return fmt.Errorf("config: scheduler buffer must be positive, got %d", c.UI.SchedulerBuffer)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Location is the zone reminders compute "today" in. Empty means local time.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Reminder.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Reminder.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Reminder.Timezone, err)
	}
	return loc, nil
}

// StorageOptions fills in the default data path for file based backends.
func (c Config) StorageOptions() storage.Options {
	backend := strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	path := c.Storage.Path
	if path == "" {
		switch backend {
		case storage.BackendFile:
			path = filepath.Join(DataDir(), "tasks.json")
		case "", storage.BackendSQLite:
			path = filepath.Join(DataDir(), "taskboard.db")
		}
	}
	return storage.Options{
		Backend:       backend,
		Path:          path,
		RedisAddr:     c.Storage.Redis.Addr,
		RedisPassword: c.Storage.Redis.Password,
		RedisDB:       c.Storage.Redis.DB,
	}
}

func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "taskboard", "config.yaml")
}

func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskboard")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskboard"
	}
	return filepath.Join(home, ".local", "share", "taskboard")
}
