// Package config loads the server configuration from flags, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"derrclan.com/bible-passage/internal/gateway"
	"derrclan.com/bible-passage/internal/passage"
)

// Transport modes.
const (
	ModeStdio = "stdio" // MCP over stdin/stdout
	ModeMCP   = "mcp"   // MCP over streamable HTTP only
	ModeREST  = "rest"  // REST endpoints plus MCP over HTTP
)

// Environment keys.
const (
	KeyBaseURL            = "BIBLE_API_URL"
	KeyDefaultVersion     = "BIBLE_DEFAULT_VERSION"
	KeyTimeout            = "BIBLE_TIMEOUT"
	KeySupportedVersions  = "BIBLE_SUPPORTED_VERSIONS"
	KeyLocalizedVersions  = "BIBLE_LOCALIZED_VERSIONS"
	KeyFetchConcurrency   = "BIBLE_FETCH_CONCURRENCY"
	KeyUserAgent          = "BIBLE_USER_AGENT"
	KeyMode               = "MCP_MODE"
	KeyHost               = "MCP_HOST"
	KeyPort               = "MCP_PORT"
	KeyCORSOrigins        = "MCP_CORS_ORIGINS"
	KeyCORSEnabled        = "MCP_CORS_ENABLED"
	KeyLogLevel           = "LOG_LEVEL"
	defaultCORSOriginList = "http://localhost:3000,http://localhost:8080"
)

// flagKeys maps command-line flags to the keys they override.
var flagKeys = map[string]string{
	"mode":        KeyMode,
	"host":        KeyHost,
	"port":        KeyPort,
	"log-level":   KeyLogLevel,
	"upstream":    KeyBaseURL,
	"timeout":     KeyTimeout,
	"concurrency": KeyFetchConcurrency,
	"cors":        KeyCORSEnabled,
}

// Config holds the server configuration.
type Config struct {
	Mode     string
	Host     string
	Port     int
	LogLevel string

	BaseURL           string
	UserAgent         string
	DefaultVersion    string
	Timeout           time.Duration
	SupportedVersions []string
	LocalizedVersions []string
	FetchConcurrency  int

	CORSEnabled bool
	CORSOrigins []string
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Translations returns the supported translation set.
func (c *Config) Translations() passage.Translations {
	return passage.NewTranslations(c.SupportedVersions, c.LocalizedVersions)
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("mode", ModeREST, "transport mode: stdio, mcp or rest")
	fs.String("host", "0.0.0.0", "HTTP listen host")
	fs.Int("port", 3000, "HTTP listen port")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("upstream", gateway.DefaultBaseURL, "passage lookup base URL")
	fs.Float64("timeout", gateway.DefaultTimeout.Seconds(), "upstream request timeout in seconds")
	fs.Int("concurrency", passage.DefaultConcurrency, "concurrent upstream fetches per request")
	fs.Bool("cors", true, "enable CORS for the configured origins")
}

// Load reads .env (if present), then the environment, then flags that were
// set explicitly on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyMode, ModeREST)
	v.SetDefault(KeyHost, "0.0.0.0")
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyBaseURL, gateway.DefaultBaseURL)
	v.SetDefault(KeyUserAgent, "")
	v.SetDefault(KeyDefaultVersion, passage.DefaultVersion)
	v.SetDefault(KeyTimeout, gateway.DefaultTimeout.Seconds())
	v.SetDefault(KeySupportedVersions, strings.Join(passage.PrimaryTranslations, ","))
	v.SetDefault(KeyLocalizedVersions, strings.Join(passage.LocalizedTranslations, ","))
	v.SetDefault(KeyFetchConcurrency, passage.DefaultConcurrency)
	v.SetDefault(KeyCORSEnabled, true)
	v.SetDefault(KeyCORSOrigins, defaultCORSOriginList)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	cfg := &Config{
		Mode:              strings.ToLower(strings.TrimSpace(v.GetString(KeyMode))),
		Host:              v.GetString(KeyHost),
		Port:              v.GetInt(KeyPort),
		LogLevel:          v.GetString(KeyLogLevel),
		BaseURL:           v.GetString(KeyBaseURL),
		UserAgent:         v.GetString(KeyUserAgent),
		DefaultVersion:    strings.TrimSpace(v.GetString(KeyDefaultVersion)),
		Timeout:           time.Duration(v.GetFloat64(KeyTimeout) * float64(time.Second)),
		SupportedVersions: splitList(v.GetString(KeySupportedVersions)),
		LocalizedVersions: splitList(v.GetString(KeyLocalizedVersions)),
		FetchConcurrency:  v.GetInt(KeyFetchConcurrency),
		CORSEnabled:       v.GetBool(KeyCORSEnabled),
		CORSOrigins:       splitList(v.GetString(KeyCORSOrigins)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeStdio, ModeMCP, ModeREST:
	default:
		return fmt.Errorf("invalid mode %q: want %s, %s or %s", c.Mode, ModeStdio, ModeMCP, ModeREST)
	}
	if c.Mode != ModeStdio && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.BaseURL == "" {
		return errors.New("upstream base URL cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got %d", c.FetchConcurrency)
	}
	tr := c.Translations()
	if tr.Len() == 0 {
		return errors.New("no supported translations configured")
	}
	if !tr.Supports(c.DefaultVersion) {
		return fmt.Errorf("default version %q is not a supported translation", c.DefaultVersion)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
