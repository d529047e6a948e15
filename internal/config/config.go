// Package config provides configuration management for the alert bot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot          BotConfig          `mapstructure:"bot"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	Arbiter      ArbiterConfig      `mapstructure:"arbiter"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Credentials  Credentials        `mapstructure:"-"` // Loaded separately
	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// BotConfig holds messaging-transport configuration.
type BotConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	PollLimit   int           `mapstructure:"poll_limit"`
}

// GatewayConfig holds the remote alert store endpoints. The three URLs are
// independent configuration values; when only create_url is set, the list and
// delete endpoints are derived once at load time (see deriveEndpoints), never
// per request.
type GatewayConfig struct {
	CreateURL string        `mapstructure:"create_url"`
	ListURL   string        `mapstructure:"list_url"`
	DeleteURL string        `mapstructure:"delete_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ArbiterConfig tunes the inbound-channel conflict recovery procedure.
type ArbiterConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// ConversationConfig tunes the alert dialogue.
type ConversationConfig struct {
	// Symbols are the common shortcuts offered on the symbol keyboard.
	Symbols []string `mapstructure:"symbols"`
	// RatioNumerator/RatioDenominator fix the pair for the ratio entry point.
	RatioNumerator   string `mapstructure:"ratio_numerator"`
	RatioDenominator string `mapstructure:"ratio_denominator"`
	// DecimalComma selects the comma-as-decimal price convention.
	DecimalComma bool `mapstructure:"decimal_comma"`
	// StrictEvents aborts a session on event types the current state cannot
	// consume; the default ignores them so the user can resend.
	StrictEvents bool `mapstructure:"strict_events"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// Credentials holds secrets, kept out of the main config file.
type Credentials struct {
	BotToken         string `mapstructure:"bot_token"`
	GatewayAccessKey string `mapstructure:"gateway_access_key"`
}

// DefaultSymbols are the symbol-keyboard shortcuts offered out of the box.
var DefaultSymbols = []string{"BTC", "DOT", "BNB", "MATIC", "FLOW", "ATOM", "OSMO", "ETH", "HBAR"}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/alertbot"
	}
	return filepath.Join(home, ".config", "alertbot")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// A .env file in the working directory seeds the environment before
	// overrides apply; absent files are fine.
	_ = godotenv.Load()

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.deriveEndpoints()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return err
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.api_url", "https://api.telegram.org")
	v.SetDefault("bot.poll_timeout", "30s")
	v.SetDefault("bot.poll_limit", 100)

	v.SetDefault("gateway.timeout", "15s")

	v.SetDefault("arbiter.max_attempts", 20)
	v.SetDefault("arbiter.backoff", "2s")
	v.SetDefault("arbiter.poll_timeout", "1s")

	v.SetDefault("conversation.symbols", DefaultSymbols)
	v.SetDefault("conversation.ratio_numerator", "GMT")
	v.SetDefault("conversation.ratio_denominator", "GST")
	v.SetDefault("conversation.decimal_comma", true)
	v.SetDefault("conversation.strict_events", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", "")
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Credentials.BotToken = v
	}
	if v := os.Getenv("ALERT_GATEWAY_KEY"); v != "" {
		cfg.Credentials.GatewayAccessKey = v
	}
	if v := os.Getenv("ALERT_GATEWAY_URL"); v != "" {
		cfg.Gateway.CreateURL = v
	}
	if v := os.Getenv("ALERT_GATEWAY_LIST_URL"); v != "" {
		cfg.Gateway.ListURL = v
	}
	if v := os.Getenv("ALERT_GATEWAY_DELETE_URL"); v != "" {
		cfg.Gateway.DeleteURL = v
	}
}

// deriveEndpoints fills empty list/delete URLs from the create URL by swapping
// the final path segment. The remote service exposes its three operations as
// sibling paths; deriving here, once, keeps that coupling out of the client.
func (c *Config) deriveEndpoints() {
	if c.Gateway.CreateURL == "" {
		return
	}
	if c.Gateway.ListURL == "" {
		c.Gateway.ListURL = siblingEndpoint(c.Gateway.CreateURL, "get_all_alerts")
	}
	if c.Gateway.DeleteURL == "" {
		c.Gateway.DeleteURL = siblingEndpoint(c.Gateway.CreateURL, "delete_alert")
	}
}

// siblingEndpoint replaces the last path segment of rawURL with segment,
// preserving any query string.
func siblingEndpoint(rawURL, segment string) string {
	base, query, hasQuery := strings.Cut(rawURL, "?")
	idx := strings.LastIndex(base, "/")
	if idx < 0 || idx == len(base)-1 {
		return rawURL
	}
	out := base[:idx+1] + segment
	if hasQuery {
		out += "?" + query
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Bot.PollTimeout <= 0 {
		return fmt.Errorf("bot.poll_timeout must be positive")
	}
	if c.Bot.PollLimit <= 0 || c.Bot.PollLimit > 100 {
		return fmt.Errorf("bot.poll_limit must be between 1 and 100")
	}
	if c.Arbiter.MaxAttempts <= 0 {
		return fmt.Errorf("arbiter.max_attempts must be positive")
	}
	if c.Arbiter.Backoff <= 0 || c.Arbiter.PollTimeout <= 0 {
		return fmt.Errorf("arbiter.backoff and arbiter.poll_timeout must be positive")
	}
	if (c.Conversation.RatioNumerator == "") != (c.Conversation.RatioDenominator == "") {
		return fmt.Errorf("conversation.ratio_numerator and ratio_denominator must be set together")
	}
	return nil
}

// RequireRunSecrets checks the values the bot loop cannot start without.
// Kept separate from Validate so operational commands (breaklock with an
// explicit token flag, config show) work on a partial configuration.
func (c *Config) RequireRunSecrets() error {
	if c.Credentials.BotToken == "" {
		return fmt.Errorf("bot token is not set (credentials.toml or BOT_TOKEN)")
	}
	if c.Gateway.CreateURL == "" {
		return fmt.Errorf("gateway create_url is not set (config.toml or ALERT_GATEWAY_URL)")
	}
	return nil
}
