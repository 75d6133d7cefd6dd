package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/board"
	"github.com/amishk599/applytrack/internal/model"
)

var statusDetail string

var statusCmd = &cobra.Command{
	Use:   "status <id> [STATUS]",
	Short: "Move an application to a new status",
	Long:  "Sets an application's status and records it in the history. Without STATUS an interactive picker is shown.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDetail, "detail", "manual update", "note stored with the status change")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := setupStderrLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	app, err := sqlStore.GetApplication(args[0])
	if err != nil {
		return err
	}

	var status model.Status
	if len(args) == 2 {
		st, ok := model.ParseStatus(args[1])
		if !ok {
			return fmt.Errorf("unknown status %q", args[1])
		}
		status = st
	} else {
		st, ok, err := board.PickStatus(app)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		status = st
	}

	if status == app.Status {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", app.ID, status)
		return nil
	}
	if err := sqlStore.UpdateStatus(app.ID, status, statusDetail); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s / %s [%s -> %s]\n", app.ID, app.Company, app.Role, app.Status, status)
	return nil
}
