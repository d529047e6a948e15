package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	apperrors "crypto-alert-bot/internal/errors"
)

// addAlertCommands adds gateway inspection commands.
func addAlertCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and manage registered alerts",
		Long:  "List, remove and review alerts without going through the chat.",
	}

	cmd.AddCommand(newAlertsListCmd(app))
	cmd.AddCommand(newAlertsRemoveCmd(app))
	cmd.AddCommand(newAlertsLogCmd(app))

	rootCmd.AddCommand(cmd)
}

func newAlertsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alerts registered in the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Gateway == nil {
				output.Error("No gateway endpoint configured")
				return apperrors.Wrap(apperrors.ErrConfigInvalid, "gateway create_url")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			alerts, err := app.Gateway.ListAlerts(ctx)
			if err != nil {
				output.Error("Failed to fetch alerts: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(alerts)
			}
			if len(alerts) == 0 {
				output.Println("No alerts registered.")
				return nil
			}

			table := NewTable(output, "GUID", "SYMBOL", "CONDITION", "DESCRIPTION")
			for _, alert := range alerts {
				condition := fmt.Sprintf("%s %v", alert.Operator, alert.Price)
				table.AddRow(alert.GUID, alert.Symbol, condition, alert.Description)
			}
			table.Render()
			return nil
		},
	}
}

func newAlertsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <guid>",
		Short: "Remove an alert by GUID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Gateway == nil {
				output.Error("No gateway endpoint configured")
				return apperrors.Wrap(apperrors.ErrConfigInvalid, "gateway create_url")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			guid := args[0]
			if !app.Gateway.DeleteAlert(ctx, guid) {
				output.Error("Failed to remove alert %s", guid)
				return fmt.Errorf("remove alert %s: gateway refused", guid)
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": guid})
			}
			output.Success("✓ Alert %s removed", guid)
			return nil
		},
	}
}

func newAlertsLogCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent alert activity from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Journal is unavailable")
				return apperrors.Wrap(apperrors.ErrConfigInvalid, "journal store")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			entries, err := app.Store.Recent(ctx, limit)
			if err != nil {
				output.Error("Failed to read journal: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Println("Journal is empty.")
				return nil
			}

			table := NewTable(output, "WHEN", "ACTION", "USER", "SYMBOL", "CONDITION")
			for _, entry := range entries {
				action := entry.Action
				if output.colorEnabled {
					if action == "created" {
						action = output.Green(action)
					} else {
						action = output.Red(action)
					}
				}
				condition := ""
				if entry.Symbol != "" {
					condition = fmt.Sprintf("%s %v", entry.Operator, entry.Price)
				}
				table.AddRow(
					entry.CreatedAt.Local().Format("2006-01-02 15:04"),
					action,
					strconv.FormatInt(entry.UserID, 10),
					entry.Symbol,
					condition,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}
