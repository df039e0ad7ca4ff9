package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// DB
	Env    string `yaml:"env"`     // "dev" | "prod"
	Store  string `yaml:"store"`   // "sqlite" | "bolt" | "memory"
	DBPath string `yaml:"db_path"` // e.g. "./data/parking.db"

	// Backups
	BackupDir       string `yaml:"backup_dir"`
	AutosaveMinutes int    `yaml:"autosave_minutes"` // 0 = only on mutation and shutdown

	// Display
	Timezone string `yaml:"timezone"`
	Locale   string `yaml:"locale"`

	// Admin screen. An empty code means the factory default.
	AdminCode     string `yaml:"admin_code"`
	AdminCodeFile string `yaml:"admin_code_file"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SeedDev bool `yaml:"seed_dev"`
}

// Default returns the settings used when neither a config file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		HTTPAddr:        "127.0.0.1:8080",
		Env:             "prod",
		Store:           "sqlite",
		BackupDir:       defaultBackupDir(),
		AutosaveMinutes: 5,
		Timezone:        "Asia/Seoul",
		Locale:          "ko",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads the YAML file at path (if any) over Default, then applies the
// PARKING_* environment variables on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenvDefault("PARKING_HTTP_ADDR", c.HTTPAddr)
	c.Env = getenvDefault("PARKING_ENV", c.Env)
	c.Store = getenvDefault("PARKING_STORE", c.Store)
	c.DBPath = getenvDefault("PARKING_DB_PATH", c.DBPath)
	c.BackupDir = getenvDefault("PARKING_BACKUP_DIR", c.BackupDir)
	c.AutosaveMinutes = getenvInt("PARKING_AUTOSAVE_MINUTES", c.AutosaveMinutes)
	c.Timezone = getenvDefault("PARKING_TIMEZONE", c.Timezone)
	c.Locale = getenvDefault("PARKING_LOCALE", c.Locale)
	c.AdminCode = getenvDefault("PARKING_ADMIN_CODE", c.AdminCode)
	c.AdminCodeFile = getenvDefault("PARKING_ADMIN_CODE_FILE", c.AdminCodeFile)
	c.LogLevel = getenvDefault("PARKING_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenvDefault("PARKING_LOG_FORMAT", c.LogFormat)
	c.SeedDev = getenvBool("PARKING_SEED_DEV", c.SeedDev)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as prod so demo rows never leak into a real lot
		c.Env = "prod"
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.DBPath == "" {
		switch c.Store {
		case "sqlite":
			c.DBPath = "./data/parking.db"
		case "bolt":
			c.DBPath = "./data/parking.bolt"
		}
	}
	if c.AutosaveMinutes < 0 {
		c.AutosaveMinutes = 0
	}
}

// Validate rejects settings the app cannot start with.
func (c Config) Validate() error {
	switch c.Store {
	case "sqlite", "bolt", "memory":
	default:
		return fmt.Errorf("config: unknown store %q (want sqlite, bolt or memory)", c.Store)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("config: http_addr is empty")
	}
	if strings.TrimSpace(c.BackupDir) == "" {
		return fmt.Errorf("config: backup_dir is empty")
	}
	return nil
}

// defaultBackupDir is the user's Downloads folder, where the kiosk has
// always written its backups.
func defaultBackupDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./downloads"
	}
	return filepath.Join(home, "Downloads")
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}
