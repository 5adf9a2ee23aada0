package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the public hosted Taiga instance
const DefaultAPIURL = "https://api.taiga.io/api/v1"

// Config holds all configuration for the taiga-mcp-server
type Config struct {
	// Taiga API settings
	APIURL   string `yaml:"api_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Token lifetime policy. A zero TokenTTL keeps a token until the
	// process exits; HonorTokenExpiry also expires it at its JWT exp claim.
	TokenTTL         time.Duration `yaml:"token_ttl"`
	HonorTokenExpiry bool          `yaml:"honor_token_expiry"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`

	// Server settings
	Port      int    `yaml:"port"`
	ReadOnly  bool   `yaml:"read_only"`
	ExportDir string `yaml:"export_dir"`

	// ShareSession lets SSE and REST callers without a token of their own
	// act through the configured account. Off by default.
	ShareSession bool `yaml:"share_session"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		APIURL:           DefaultAPIURL,
		HonorTokenExpiry: true,
		RequestTimeout:   30 * time.Second,
		Port:             8080,
		ExportDir:        os.TempDir(),
	}
}

// Load reads configuration from a .env file, an optional YAML file and the
// process environment, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv("TAIGA_API_URL", c.APIURL)
	c.Username = getEnv("TAIGA_USERNAME", c.Username)
	c.Password = getEnv("TAIGA_PASSWORD", c.Password)
	c.ExportDir = getEnv("TAIGA_EXPORT_DIR", c.ExportDir)

	var err error
	if c.TokenTTL, err = getEnvDuration("TAIGA_TOKEN_TTL", c.TokenTTL); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("TAIGA_REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.HonorTokenExpiry, err = getEnvBool("TAIGA_HONOR_TOKEN_EXPIRY", c.HonorTokenExpiry); err != nil {
		return err
	}
	if c.ReadOnly, err = getEnvBool("TAIGA_MCP_READ_ONLY", c.ReadOnly); err != nil {
		return err
	}
	if c.ShareSession, err = getEnvBool("TAIGA_SHARE_SESSION", c.ShareSession); err != nil {
		return err
	}
	if c.Port, err = getEnvInt("PORT", c.Port); err != nil {
		return err
	}

	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	c.APIURL = strings.TrimSuffix(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return errors.New("TAIGA_API_URL must not be empty")
	}
	if c.TokenTTL < 0 {
		return errors.New("TAIGA_TOKEN_TTL must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("TAIGA_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// HasCredentials reports whether a default username and password are set
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// SharedSessionEnabled reports whether network callers without a token may
// use the configured account
func (c *Config) SharedSessionEnabled() bool {
	return c.ShareSession && c.HasCredentials()
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
