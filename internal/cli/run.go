package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crypto-alert-bot/internal/arbiter"
	"crypto-alert-bot/internal/bot"
	apperrors "crypto-alert-bot/internal/errors"
)

// addRunCommand adds the long-running bot command.
func addRunCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the alert bot",
		Long: `Start the alert bot and poll for updates until interrupted.

Before polling, the inbound channel is checked for a competing consumer:
any registered webhook is removed and pending conflicts are drained. A
conflict that appears later, in steady state, stops the bot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if err := app.Config.RequireRunSecrets(); err != nil {
				output.Error("Missing credentials: %v", err)
				output.Dim("Set BOT_TOKEN and ALERT_GATEWAY_URL, or fill in %s/credentials.toml", app.Config.Dir)
				return err
			}
			if app.Gateway == nil {
				output.Error("Gateway endpoints are not usable; check the [gateway] section")
				return apperrors.Wrap(apperrors.ErrConfigInvalid, "gateway endpoints")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Pre-flight: make sure no other consumer holds the stream.
			arb := arbiter.New(app.Telegram, arbiterConfig(app), app.Logger)
			arb.Progress = output.Dim
			if err := arb.EnsureExclusive(ctx); err != nil {
				output.Error("Inbound channel is held by another consumer: %v", err)
				output.Dim("Stop the competing instance, or run 'alertbot breaklock' and retry.")
				return err
			}

			b := bot.New(app.Telegram, app.Gateway, app.Store, bot.Config{
				PollTimeout:      app.Config.Bot.PollTimeout,
				PollLimit:        app.Config.Bot.PollLimit,
				Symbols:          app.Config.Conversation.Symbols,
				RatioNumerator:   app.Config.Conversation.RatioNumerator,
				RatioDenominator: app.Config.Conversation.RatioDenominator,
				StrictEvents:     app.Config.Conversation.StrictEvents,
				DecimalComma:     app.Config.Conversation.DecimalComma,
			}, app.Logger)

			output.Success("Bot started. Press Ctrl+C to stop.")
			err := b.Run(ctx)

			switch {
			case err == nil, apperrors.Is(err, context.Canceled):
				output.Println("Bot stopped.")
				return nil
			case apperrors.Is(err, apperrors.ErrConflict):
				output.Error("Another bot instance took over the update stream. Shutting down.")
				return err
			default:
				return err
			}
		},
	}

	rootCmd.AddCommand(cmd)
}

func arbiterConfig(app *App) arbiter.Config {
	cfg := arbiter.DefaultConfig()
	if app.Config.Arbiter.MaxAttempts > 0 {
		cfg.MaxAttempts = app.Config.Arbiter.MaxAttempts
	}
	if app.Config.Arbiter.Backoff > 0 {
		cfg.Backoff = app.Config.Arbiter.Backoff
	}
	if app.Config.Arbiter.PollTimeout > 0 {
		cfg.PollTimeout = app.Config.Arbiter.PollTimeout
	}
	return cfg
}
