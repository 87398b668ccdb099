package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StorageConfig locates the shared container and the legacy private root.
type StorageConfig struct {
	// AppGroup is the shared container identifier. Required.
	AppGroup string `mapstructure:"app_group" yaml:"app_group"`

	// ContainersRoot is the directory holding shared containers,
	// one sub-directory per app group.
	ContainersRoot string `mapstructure:"containers_root" yaml:"containers_root"`

	// PrivateRoot is the per-process storage root. The legacy database,
	// legacy documents and the preferences file live here.
	PrivateRoot string `mapstructure:"private_root" yaml:"private_root"`

	// LockTimeoutSec bounds how long relocation waits for the
	// cross-process relocation lock. Zero disables the lock.
	LockTimeoutSec int `mapstructure:"lock_timeout_sec" yaml:"lock_timeout_sec"`

	// PreserveFailedDocuments keeps legacy documents that failed to copy
	// instead of deleting the legacy directory regardless.
	PreserveFailedDocuments bool `mapstructure:"preserve_failed_documents" yaml:"preserve_failed_documents"`
}

// BackupConfig holds settings for the cloud backup.
type BackupConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket      string `mapstructure:"bucket" yaml:"bucket"`
	Prefix      string `mapstructure:"prefix" yaml:"prefix"`
	IntervalSec int    `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Backup  BackupConfig  `mapstructure:"backup" yaml:"backup"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// EnvPrefix prefixes environment overrides, e.g. TRIPKEEPER_STORAGE_APP_GROUP.
const EnvPrefix = "TRIPKEEPER"

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tripkeeper/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "tripkeeper", "config.yaml")
}

// defaultPrivateRoot is the legacy per-app storage root. Empty when the
// home directory is unknown, which callers treat as "nothing to migrate".
func defaultPrivateRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "tripkeeper")
}

func defaultContainersRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "group-containers")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			ContainersRoot: defaultContainersRoot(),
			PrivateRoot:    defaultPrivateRoot(),
			LockTimeoutSec: 5,
		},
		Backup: BackupConfig{
			IntervalSec: 900,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// NewViper returns a Viper instance with defaults and environment
// overrides registered. Commands bind their flags to it before calling
// LoadConfigFrom.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("storage.app_group", def.Storage.AppGroup)
	v.SetDefault("storage.containers_root", def.Storage.ContainersRoot)
	v.SetDefault("storage.private_root", def.Storage.PrivateRoot)
	v.SetDefault("storage.lock_timeout_sec", def.Storage.LockTimeoutSec)
	v.SetDefault("storage.preserve_failed_documents", false)
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.endpoint", "")
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.prefix", "")
	v.SetDefault("backup.interval_sec", def.Backup.IntervalSec)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults and environment overrides apply.
func LoadConfig(path string) (*AppConfig, error) {
	return LoadConfigFrom(NewViper(), path)
}

// LoadConfigFrom is LoadConfig on a caller-prepared Viper instance.
func LoadConfigFrom(v *viper.Viper, path string) (*AppConfig, error) {
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Storage.ContainersRoot = expandHome(cfg.Storage.ContainersRoot)
	cfg.Storage.PrivateRoot = expandHome(cfg.Storage.PrivateRoot)
	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("backup", cfg.Backup)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
