package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	BaseURL              string        `yaml:"base_url"`
	Schema               string        `yaml:"schema"`
	Locale               string        `yaml:"locale"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	LogFile              string        `yaml:"log_file"`
	LogLevel             string        `yaml:"log_level"`
	DesktopNotifications bool          `yaml:"desktop_notifications"`
	PrefsPath            string        `yaml:"prefs_path"`
	SchedulerBuffer      int           `yaml:"scheduler_buffer"`
	StubAddr             string        `yaml:"stub_addr"`
	StubDB               string        `yaml:"stub_db"`
}

func Default() Config {
	return Config{
		BaseURL:         "http://localhost:3000",
		Schema:          "public",
		Locale:          "en",
		RequestTimeout:  15 * time.Second,
		LogFile:         filepath.Join(cacheDir(), "restodo.log"),
		LogLevel:        "info",
		PrefsPath:       ".restodo_prefs.json",
		SchedulerBuffer: 64,
		StubAddr:        ":3000",
		StubDB:          "data/todos.db",
	}
}

// Load layers defaults, the YAML file at path (if any), a .env file in the
// working directory and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		path = os.Getenv("RESTODO_CONFIG")
	}
	if strings.TrimSpace(path) != "" {
		loaded, err := LoadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	_ = godotenv.Load(".env")
	cfg = FromEnv(cfg)
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto base. Keys missing from
// the file keep their base value.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := base
	if strings.TrimSpace(string(raw)) == "" {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("RESTODO_BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := os.LookupEnv("RESTODO_SCHEMA"); ok {
		cfg.Schema = strings.TrimSpace(v)
	}
	if v, ok := getEnvString("RESTODO_LOCALE"); ok {
		cfg.Locale = v
	}
	if v, ok := getEnvDuration("RESTODO_REQUEST_TIMEOUT"); ok && v > 0 {
		cfg.RequestTimeout = v
	}
	if v, ok := getEnvString("RESTODO_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvString("RESTODO_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvBool("RESTODO_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvString("RESTODO_PREFS_FILE"); ok {
		cfg.PrefsPath = v
	}
	if v, ok := getEnvInt("RESTODO_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvString("RESTODO_STUB_ADDR"); ok {
		cfg.StubAddr = v
	}
	if v, ok := getEnvString("RESTODO_STUB_DB"); ok {
		cfg.StubDB = v
	}
	return cfg
}

func (c Config) Validate() error {
	raw := strings.TrimSpace(c.BaseURL)
	if raw == "" {
		return fmt.Errorf("%w: base_url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: base_url: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an absolute http(s) url, got %q", ErrInvalidConfig, raw)
	}
	switch strings.ToLower(c.Locale) {
	case "", "en", "zh":
	default:
		return fmt.Errorf("%w: unsupported locale %q", ErrInvalidConfig, c.Locale)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return "."
	}
	return filepath.Join(dir, "restodo")
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
