package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crypto-alert-bot/internal/arbiter"
	apperrors "crypto-alert-bot/internal/errors"
	"crypto-alert-bot/internal/telegram"
)

// addBreakLockCommand adds the standalone conflict-recovery command.
func addBreakLockCommand(rootCmd *cobra.Command, app *App) {
	var tokenFlag string

	cmd := &cobra.Command{
		Use:   "breaklock",
		Short: "Reclaim the inbound update stream",
		Long: `Reclaim the inbound update stream from a competing consumer.

Removes any registered webhook (dropping its pending updates), then drains
the long-poll channel until a poll succeeds without a conflict. Run this
when the bot refuses to start because another instance appears to hold
the stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			token := tokenFlag
			if token == "" {
				token = os.Getenv("BOT_TOKEN")
			}
			if token == "" {
				token = app.Config.Credentials.BotToken
			}
			if token == "" {
				output.Error("No bot token provided")
				output.Dim("Pass --token, set BOT_TOKEN, or fill in credentials.toml")
				return apperrors.Wrap(apperrors.ErrConfigInvalid, "bot token")
			}

			transport := app.Telegram
			if transport == nil || tokenFlag != "" {
				transport = telegram.NewClient(token, app.Logger)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			arb := arbiter.New(transport, arbiterConfig(app), app.Logger)
			arb.Progress = output.Dim

			output.Info("Attempting to reclaim the update stream...")
			if err := arb.EnsureExclusive(ctx); err != nil {
				output.Error("Stream is still held: %v", err)
				output.Dim("The competing consumer kept polling for the whole attempt budget.")
				output.Dim("Find and stop the other instance, then run this command again.")
				return err
			}

			output.Success("✓ Update stream reclaimed. The bot can start now.")
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenFlag, "token", "", "bot token (overrides config and environment)")
	rootCmd.AddCommand(cmd)
}
