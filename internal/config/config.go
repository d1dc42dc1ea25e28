// Package config handles loading and resolving undertow's process-wide
// configuration. Resolution order (first non-empty value wins):
//  1. CLI flag
//  2. Environment variable
//  3. config.json in the current working directory
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultTimeout     = 12 * time.Second
	DefaultConcurrency = 8
	DefaultRate        = 5.0
	DefaultListenAddr  = ":8080"
	DefaultCronSchedule = "0 */6 * * *"

	DefaultFredBaseURL       = "https://api.stlouisfed.org/fred/"
	DefaultIndeedAggregateURL = "https://raw.githubusercontent.com/hiring-lab/data/master/job_postings_data/US/aggregate_job_postings_US.csv"
	DefaultIndeedSectorsURL   = "https://raw.githubusercontent.com/hiring-lab/data/master/job_postings_data/US/job_postings_by_sector.csv"

	EnvAPIKey       = "FRED_API_KEY"
	EnvRefreshToken = "REFRESH_TOKEN"
	EnvDBPath       = "UNDERTOW_DB_PATH"
	EnvListenAddr   = "UNDERTOW_LISTEN_ADDR"
)

// File is the on-disk representation of config.json.
type File struct {
	APIKey           string  `json:"api_key"`
	RefreshToken     string  `json:"refresh_token"`
	Timeout          string  `json:"timeout"`
	Concurrency      int     `json:"concurrency"`
	Rate             float64 `json:"rate"`
	FredBaseURL      string  `json:"fred_base_url"`
	IndeedAggregateURL string `json:"indeed_aggregate_url"`
	IndeedSectorsURL string  `json:"indeed_sectors_url"`
	DBPath           string  `json:"db_path"`
	ListenAddr       string  `json:"listen_addr"`
	CronSchedule     string  `json:"cron_schedule"`
}

// Config is the fully-resolved runtime configuration. All callers use
// this struct; File is only read during loading.
type Config struct {
	APIKey       string
	RefreshToken string
	Timeout      time.Duration
	Concurrency  int
	Rate         float64

	FredBaseURL        string
	IndeedAggregateURL string
	IndeedSectorsURL   string

	DBPath       string
	ListenAddr   string
	CronSchedule string

	ConfigPath string // path of the config.json that was loaded (empty if none found)

	Debug bool
}

// Load resolves configuration from all sources. flagAPIKey and
// flagRefreshToken are CLI-flag overrides (empty string if unset).
func Load(flagAPIKey, flagRefreshToken string) (*Config, error) {
	cfg := &Config{
		Timeout:            DefaultTimeout,
		Concurrency:        DefaultConcurrency,
		Rate:               DefaultRate,
		FredBaseURL:        DefaultFredBaseURL,
		IndeedAggregateURL: DefaultIndeedAggregateURL,
		IndeedSectorsURL:   DefaultIndeedSectorsURL,
		ListenAddr:         DefaultListenAddr,
		CronSchedule:       DefaultCronSchedule,
	}

	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvRefreshToken); v != "" {
		cfg.RefreshToken = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}

	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagRefreshToken != "" {
		cfg.RefreshToken = flagRefreshToken
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".undertow", "undertow.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if the API key required for any refresh is
// missing. It does not require a refresh token: an unset token simply
// means /api/refresh rejects all callers.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New(
			"FRED API key not found.\n\n" +
				"Set it one of these ways:\n" +
				"  1. CLI flag:        undertow --api-key YOUR_KEY ...\n" +
				"  2. Environment:     export FRED_API_KEY=YOUR_KEY\n" +
				"  3. config.json:     {\"api_key\": \"YOUR_KEY\"}\n\n" +
				"Get a free key at https://fred.stlouisfed.org/docs/api/api_key.html",
		)
	}
	return nil
}

// RedactedAPIKey returns the API key with most characters replaced by
// asterisks. Safe for logging and display.
func (c *Config) RedactedAPIKey() string {
	return redact(c.APIKey)
}

// RedactedRefreshToken is the same redaction applied to the refresh
// token, used when logging the resolved configuration.
func (c *Config) RedactedRefreshToken() string {
	return redact(c.RefreshToken)
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

// loadFile attempts to read config.json from the current working
// directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg, skipping any
// fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.APIKey != "" {
		cfg.APIKey = f.APIKey
	}
	if f.RefreshToken != "" {
		cfg.RefreshToken = f.RefreshToken
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.FredBaseURL != "" {
		cfg.FredBaseURL = f.FredBaseURL
	}
	if f.IndeedAggregateURL != "" {
		cfg.IndeedAggregateURL = f.IndeedAggregateURL
	}
	if f.IndeedSectorsURL != "" {
		cfg.IndeedSectorsURL = f.IndeedSectorsURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.CronSchedule != "" {
		cfg.CronSchedule = f.CronSchedule
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `undertow config init`.
func Template() File {
	return File{
		APIKey:             "",
		RefreshToken:       "",
		Timeout:            "12s",
		Concurrency:        DefaultConcurrency,
		Rate:               DefaultRate,
		FredBaseURL:        DefaultFredBaseURL,
		IndeedAggregateURL: DefaultIndeedAggregateURL,
		IndeedSectorsURL:   DefaultIndeedSectorsURL,
		ListenAddr:         DefaultListenAddr,
		CronSchedule:       DefaultCronSchedule,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
