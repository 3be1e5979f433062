package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DBPath string

	// Email folder settings
	EmailsPath string

	// Remote image freeze settings
	StorageDir              string // root directory for frozen remote images
	MaxAssetsPerMessage     int    // candidate URL cap per freeze call
	MaxAssetBytes           int64  // per-file download ceiling
	TotalMaxBytesPerMessage int64  // cumulative download ceiling per freeze call
	ConnectTimeout          time.Duration
	ReadTimeout             time.Duration
}

// Default returns default configuration, with MAILVAULT_* environment
// variables taking precedence over the built-in values
func Default() *Config {
	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	// Use ~/.mailvault for data directory
	dataDir := filepath.Join(homeDir, ".mailvault")

	cfg := &Config{
		Host:       "localhost",
		Port:       "8080",
		DBPath:     filepath.Join(dataDir, "emails.db"),
		EmailsPath: "./emails", // Default to ./emails directory

		StorageDir:              dataDir,
		MaxAssetsPerMessage:     64,
		MaxAssetBytes:           5 * 1024 * 1024,  // 5 MB per image
		TotalMaxBytesPerMessage: 20 * 1024 * 1024, // 20 MB per message
		ConnectTimeout:          10 * time.Second,
		ReadTimeout:             30 * time.Second,
	}

	cfg.applyEnv()
	return cfg
}

// applyEnv overrides defaults from MAILVAULT_* environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("MAILVAULT_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("MAILVAULT_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("MAILVAULT_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MAILVAULT_EMAILS"); v != "" {
		c.EmailsPath = v
	}
	if v := os.Getenv("MAILVAULT_STORAGE"); v != "" {
		c.StorageDir = v
	}
	if n, ok := envInt("MAILVAULT_MAX_ASSETS"); ok {
		c.MaxAssetsPerMessage = int(n)
	}
	if n, ok := envInt("MAILVAULT_MAX_ASSET_BYTES"); ok {
		c.MaxAssetBytes = n
	}
	if n, ok := envInt("MAILVAULT_MAX_TOTAL_BYTES"); ok {
		c.TotalMaxBytesPerMessage = n
	}
	if n, ok := envInt("MAILVAULT_CONNECT_TIMEOUT_SECS"); ok {
		c.ConnectTimeout = time.Duration(n) * time.Second
	}
	if n, ok := envInt("MAILVAULT_READ_TIMEOUT_SECS"); ok {
		c.ReadTimeout = time.Duration(n) * time.Second
	}
}

func envInt(key string) (int64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// AssetDir returns the frozen-image directory for one message
func (c *Config) AssetDir(emailID int64) string {
	return filepath.Join(c.StorageDir, "assets", strconv.FormatInt(emailID, 10))
}

// Address returns the full server address
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// URL returns the full server URL
func (c *Config) URL() string {
	return "http://" + c.Address()
}
