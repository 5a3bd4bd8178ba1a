package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	Cowboy CowboyConfig `json:"cowboy"`
	Strava StravaConfig `json:"strava"`
	Sync   SyncConfig   `json:"sync"`
}

// CowboyConfig holds the Cowboy account credentials
type CowboyConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SyncConfig holds sync behavior settings
type SyncConfig struct {
	// LookbackDays bounds the trip listing window.
	LookbackDays int `json:"lookback_days"`
	// GraceMinutes is the minimum delay after a trip ends before it is
	// processed, so provider-side aggregates can settle.
	GraceMinutes int `json:"grace_minutes"`
	// WattsFilter is the power ceiling; samples at or above it are
	// written as zero.
	WattsFilter float64 `json:"watts_filter"`
	// ExportDir, when set, receives a copy of each built TCX file.
	ExportDir string `json:"export_dir"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Sync: SyncConfig{
			LookbackDays: 7,
			GraceMinutes: 30,
			WattsFilter:  1100,
		},
	}
}

// Load reads the configuration from ~/.cowboy-strava/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing values
	defaults := DefaultConfig()
	if cfg.Sync.LookbackDays == 0 {
		cfg.Sync.LookbackDays = defaults.Sync.LookbackDays
	}
	if cfg.Sync.GraceMinutes == 0 {
		cfg.Sync.GraceMinutes = defaults.Sync.GraceMinutes
	}
	if cfg.Sync.WattsFilter == 0 {
		cfg.Sync.WattsFilter = defaults.Sync.WattsFilter
	}

	return &cfg, nil
}

// Save writes the configuration to ~/.cowboy-strava/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Cowboy = CowboyConfig{
		Email:    "YOUR_COWBOY_EMAIL",
		Password: "YOUR_COWBOY_PASSWORD",
	}
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}

	return Save(&example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Cowboy.Email == "" || c.Cowboy.Email == "YOUR_COWBOY_EMAIL" {
		return errors.New("cowboy.email is required")
	}
	if c.Cowboy.Password == "" || c.Cowboy.Password == "YOUR_COWBOY_PASSWORD" {
		return errors.New("cowboy.password is required")
	}
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}

	if c.Sync.LookbackDays < 1 {
		return fmt.Errorf("sync.lookback_days must be at least 1, got %d", c.Sync.LookbackDays)
	}
	if c.Sync.GraceMinutes < 0 {
		return fmt.Errorf("sync.grace_minutes must not be negative, got %d", c.Sync.GraceMinutes)
	}
	if c.Sync.WattsFilter <= 0 {
		return fmt.Errorf("sync.watts_filter must be positive, got %v", c.Sync.WattsFilter)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cowboy-strava", "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cowboy-strava"), nil
}
