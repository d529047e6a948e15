package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"crypto-alert-bot/internal/config"
	apperrors "crypto-alert-bot/internal/errors"
)

func testAppConfig(dir string) *config.Config {
	return &config.Config{
		Dir: dir,
		Conversation: config.ConversationConfig{
			Symbols:          config.DefaultSymbols,
			RatioNumerator:   "GMT",
			RatioDenominator: "GST",
		},
	}
}

// The journal and all path output follow the loaded config directory, not
// the default one.
func TestRootCmd_UsesConfiguredDirectory(t *testing.T) {
	dir := t.TempDir()
	rootCmd := NewRootCmd(testAppConfig(dir), zerolog.Nop())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"config", "path"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config path error: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != dir {
		t.Errorf("config path printed %q, want %q", got, dir)
	}

	if _, err := os.Stat(filepath.Join(dir, "alertbot.db")); err != nil {
		t.Errorf("journal was not created under the configured directory: %v", err)
	}
}

// A create endpoint with unusable sibling endpoints disables the gateway
// instead of wiring a half-valid client.
func TestRootCmd_InvalidGatewayEndpointsDisableGateway(t *testing.T) {
	cfg := testAppConfig(t.TempDir())
	cfg.Gateway = config.GatewayConfig{
		CreateURL: "http://store.example/api/insert_new_alert",
		Timeout:   time.Second,
	}

	rootCmd := NewRootCmd(cfg, zerolog.Nop())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"alerts", "list"})
	err := rootCmd.Execute()
	if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Fatalf("alerts list error = %v, want ErrConfigInvalid", err)
	}
}
