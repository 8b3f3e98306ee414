package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendCSV      = "csv"
	BackendKV       = "kv"
)

type Config struct {
	Storage Storage `yaml:"storage" mapstructure:"storage"`
	Web     Web     `yaml:"web" mapstructure:"web"`
	KV      KV      `yaml:"kv" mapstructure:"kv"`
}

// Storage selects where the tracker keeps its snapshot.
type Storage struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Path is the database file for sqlite and the data file for csv.
	Path  string `yaml:"path" mapstructure:"path"`
	DSN   string `yaml:"dsn" mapstructure:"dsn"`
	KVURL string `yaml:"kv_url" mapstructure:"kv_url"`
}

type Web struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type KV struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

func Default() Config {
	path := "tasktracker.db"
	if dir, err := configDir(); err == nil {
		path = filepath.Join(dir, "tasktracker.db")
	}
	return Config{
		Storage: Storage{Backend: BackendSQLite, Path: path, KVURL: "http://localhost:8078"},
		Web:     Web{Addr: ":8080"},
		KV:      KV{Addr: ":8078"},
	}
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tasktracker"), nil
}

func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads the YAML file at path over the defaults. A missing file is not an
// error. Environment variables prefixed with TASKTRACKER_ override both, for
// example TASKTRACKER_STORAGE_BACKEND=csv.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		if err := readFile(v, path); err != nil {
			return Config{}, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// AutomaticEnv only applies to keys viper already knows about, so every field
// is registered with its default value.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("storage.kv_url", cfg.Storage.KVURL)
	v.SetDefault("web.addr", cfg.Web.Addr)
	v.SetDefault("kv.addr", cfg.KV.Addr)
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendKV:
		if c.Storage.KVURL == "" {
			return fmt.Errorf("storage kv_url is required for kv backend")
		}
	case BackendSQLite, BackendCSV:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for %s backend", c.Storage.Backend)
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage dsn is required for postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
