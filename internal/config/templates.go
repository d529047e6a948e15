package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Crypto Alert Bot Configuration

[bot]
# Bot API host; leave as-is outside of tests
api_url = "https://api.telegram.org"
# Long-poll window for the update stream
poll_timeout = "30s"
# Maximum updates per poll (1-100)
poll_limit = 100

[gateway]
# Alert store endpoints. Only create_url is required; list_url and delete_url
# default to the sibling paths get_all_alerts and delete_alert.
create_url = ""
list_url = ""
delete_url = ""
# Per-call timeout
timeout = "15s"

[arbiter]
# Conflict recovery: bounded getUpdates drain before the bot starts polling
max_attempts = 20
backoff = "2s"
poll_timeout = "1s"

[conversation]
# Shortcuts offered on the symbol keyboard; any typed symbol is accepted too
symbols = ["BTC", "DOT", "BNB", "MATIC", "FLOW", "ATOM", "OSMO", "ETH", "HBAR"]
# Fixed pair for the /creategmtalert entry point
ratio_numerator = "GMT"
ratio_denominator = "GST"
# Treat comma as the decimal separator when parsing prices
decimal_comma = true
# Abort a session on input the current step cannot consume (default: ignore)
strict_events = false

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
# Empty means <config dir>/logs/alertbot.log
file_path = ""
`

const credentialsTemplate = `# Crypto Alert Bot Credentials
# WARNING: Keep this file secure! Do not commit to version control.
# Both values can instead come from the environment (BOT_TOKEN,
# ALERT_GATEWAY_KEY) or a .env file in the working directory.

bot_token = ""
gateway_access_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
