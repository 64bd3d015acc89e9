package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/forecast-screen/internal/prefs"
	"github.com/i474232898/forecast-screen/internal/session"
	"github.com/i474232898/forecast-screen/internal/weather/providers"
)

const defaultConfigFile = "config.yaml"

var validate = validator.New()

type AppConfig struct {
	WeatherAPIKey     string
	WeatherAPIBaseURL string        `validate:"required,url"`
	HTTPTimeout       time.Duration `validate:"gt=0"`
	MaxRetries        int           `validate:"min=0,max=10"`

	DefaultCity    string        `validate:"required"`
	ForecastDays   int           `validate:"min=1,max=14"`
	SearchDebounce time.Duration `validate:"gte=0"`

	PrefsDriver string `validate:"oneof=sqlite memory"`
	PrefsPath   string

	// LogFile receives log output while the terminal UI owns the screen.
	LogFile string

	Port string `validate:"required,numeric"`

	// Idle HTTP sessions are closed after SessionIdleTimeout; the sweep
	// runs every SessionSweepInterval.
	SessionIdleTimeout   time.Duration `validate:"gt=0"`
	SessionSweepInterval time.Duration `validate:"gt=0"`
}

// fileConfig mirrors the optional YAML file. Durations are strings in
// time.ParseDuration form.
type fileConfig struct {
	WeatherAPI struct {
		APIKey     string `yaml:"api_key"`
		BaseURL    string `yaml:"base_url"`
		Timeout    string `yaml:"timeout"`
		MaxRetries *int   `yaml:"max_retries"`
	} `yaml:"weatherapi"`
	DefaultCity    string `yaml:"default_city"`
	ForecastDays   int    `yaml:"forecast_days"`
	SearchDebounce string `yaml:"search_debounce"`
	Prefs          struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"prefs"`
	LogFile  string `yaml:"log_file"`
	Port     string `yaml:"port"`
	Sessions struct {
		IdleTimeout   string `yaml:"idle_timeout"`
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"sessions"`
}

// Load reads configuration from .env, an optional YAML file and the
// environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	fc, err := readFile()
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{}

	cfg.WeatherAPIKey = getenvDefault("WEATHERAPI_API_KEY", fc.WeatherAPI.APIKey)
	cfg.WeatherAPIBaseURL = getenvDefault("WEATHERAPI_BASE_URL", orDefault(fc.WeatherAPI.BaseURL, providers.DefaultWeatherAPIBaseURL))

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", orDefault(fc.WeatherAPI.Timeout, "10s")); err != nil {
		return nil, err
	}

	retries := 0
	if fc.WeatherAPI.MaxRetries != nil {
		retries = *fc.WeatherAPI.MaxRetries
	}
	cfg.MaxRetries = getenvInt("WEATHERAPI_MAX_RETRIES", retries)

	cfg.DefaultCity = getenvDefault("DEFAULT_CITY", orDefault(fc.DefaultCity, session.DefaultCity))

	days := session.DefaultForecastDays
	if fc.ForecastDays != 0 {
		days = fc.ForecastDays
	}
	cfg.ForecastDays = getenvInt("FORECAST_DAYS", days)

	if cfg.SearchDebounce, err = getenvDuration("SEARCH_DEBOUNCE", orDefault(fc.SearchDebounce, session.DefaultDebounce.String())); err != nil {
		return nil, err
	}

	cfg.PrefsDriver = getenvDefault("PREFS_DRIVER", orDefault(fc.Prefs.Driver, prefs.DriverSQLite))
	cfg.PrefsPath = getenvDefault("PREFS_PATH", orDefault(fc.Prefs.Path, "forecast.db"))
	cfg.LogFile = getenvDefault("LOG_FILE", orDefault(fc.LogFile, "forecast-screen.log"))
	cfg.Port = getenvDefault("PORT", orDefault(fc.Port, "8080"))

	if cfg.SessionIdleTimeout, err = getenvDuration("SESSION_IDLE_TIMEOUT", orDefault(fc.Sessions.IdleTimeout, "30m")); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", orDefault(fc.Sessions.SweepInterval, "1m")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.WeatherAPIKey == "" {
		log.Printf("WARN: WEATHERAPI_API_KEY is not set; weather requests will fail")
	}

	return cfg, nil
}

// SessionConfig returns the controller settings derived from cfg.
func (c *AppConfig) SessionConfig() session.Config {
	return session.Config{
		DefaultCity:  c.DefaultCity,
		ForecastDays: c.ForecastDays,
		Debounce:     c.SearchDebounce,
	}
}

// readFile loads CONFIG_FILE, or config.yaml when it exists. An explicitly
// named file must exist.
func readFile() (fileConfig, error) {
	var fc fileConfig

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return fc, nil
		}
		return fc, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
