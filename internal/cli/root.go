package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crypto-alert-bot/internal/config"
	"crypto-alert-bot/internal/gateway"
	"crypto-alert-bot/internal/logging"
	"crypto-alert-bot/internal/store"
	"crypto-alert-bot/internal/telegram"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Telegram *telegram.Client
	Gateway  *gateway.Client
	Store    store.JournalStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize transport if a token is available
	if cfg.Credentials.BotToken != "" {
		if cfg.Bot.APIURL != "" {
			app.Telegram = telegram.NewClientWithURL(cfg.Credentials.BotToken, cfg.Bot.APIURL, logger)
		} else {
			app.Telegram = telegram.NewClient(cfg.Credentials.BotToken, logger)
		}
		logger.Debug().Msg("Telegram client initialized")
	}

	// Initialize gateway client if an endpoint is configured
	if cfg.Gateway.CreateURL != "" {
		gwCfg := gateway.Config{
			CreateURL: cfg.Gateway.CreateURL,
			ListURL:   cfg.Gateway.ListURL,
			DeleteURL: cfg.Gateway.DeleteURL,
			AccessKey: cfg.Credentials.GatewayAccessKey,
			Timeout:   cfg.Gateway.Timeout,
		}
		if err := gwCfg.Validate(); err != nil {
			logger.Warn().Err(err).Msg("Gateway endpoints invalid, gateway disabled")
		} else {
			app.Gateway = gateway.NewClient(gwCfg, logger)
			logger.Debug().Msg("Alert gateway client initialized")
		}
	}

	// Initialize SQLite journal
	dbPath := cfg.Dir + "/alertbot.db"
	journal, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize journal, history will be unavailable")
	} else {
		app.Store = journal
		logger.Debug().Msg("SQLite journal initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "alertbot",
		Short: "Crypto Alert Bot - conversational price alerts over Telegram",
		Long: `Crypto Alert Bot registers price alerts through a Telegram conversation.

It walks users through symbol, operator, price and description, then stores
the finished alert in a remote alert gateway. Alerts can be listed and
removed from the same chat.

Use 'alertbot run' to start the bot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/alertbot)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addRunCommand(rootCmd, app)
	addBreakLockCommand(rootCmd, app)
	addAlertCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Crypto Alert Bot v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.Dir})
			} else {
				output.Println(app.Config.Dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Info("Bot Configuration")
	output.Printf("  Poll Timeout:    %s\n", cfg.Bot.PollTimeout)
	output.Printf("  Poll Limit:      %d\n", cfg.Bot.PollLimit)
	output.Printf("  Token Set:       %v\n", cfg.Credentials.BotToken != "")
	output.Println()

	output.Info("Gateway Configuration")
	output.Printf("  Create URL:      %s\n", cfg.Gateway.CreateURL)
	output.Printf("  List URL:        %s\n", cfg.Gateway.ListURL)
	output.Printf("  Delete URL:      %s\n", cfg.Gateway.DeleteURL)
	output.Printf("  Timeout:         %s\n", cfg.Gateway.Timeout)
	output.Printf("  Access Key Set:  %v\n", cfg.Credentials.GatewayAccessKey != "")
	output.Println()

	output.Info("Conversation Configuration")
	output.Printf("  Symbols:         %v\n", cfg.Conversation.Symbols)
	output.Printf("  Ratio Pair:      %s/%s\n", cfg.Conversation.RatioNumerator, cfg.Conversation.RatioDenominator)
	output.Printf("  Decimal Comma:   %v\n", cfg.Conversation.DecimalComma)
	output.Printf("  Strict Events:   %v\n", cfg.Conversation.StrictEvents)
	output.Println()

	output.Info("Arbiter Configuration")
	output.Printf("  Max Attempts:    %d\n", cfg.Arbiter.MaxAttempts)
	output.Printf("  Backoff:         %s\n", cfg.Arbiter.Backoff)

	return nil
}
