package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/model"
)

var addApp struct {
	company, role, status, source, location, notes, applied, nextAction string
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an application by hand",
	Long:  "Creates an application without an email. Status defaults to the configured default status and the applied date to today.",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addApp.company, "company", "", "company name (required)")
	f.StringVar(&addApp.role, "role", "", "role title (required)")
	f.StringVar(&addApp.status, "status", "", "initial status")
	f.StringVar(&addApp.source, "source", "manual", "where the application came from")
	f.StringVar(&addApp.location, "location", "", "job location")
	f.StringVar(&addApp.notes, "notes", "", "free-form notes")
	f.StringVar(&addApp.applied, "applied", "", "applied date, YYYY-MM-DD (default: today)")
	f.StringVar(&addApp.nextAction, "next-action", "", "next action date, YYYY-MM-DD")
	addCmd.MarkFlagRequired("company")
	addCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	logger := setupStderrLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var status model.Status
	if addApp.status != "" {
		st, ok := model.ParseStatus(addApp.status)
		if !ok {
			return fmt.Errorf("unknown status %q", addApp.status)
		}
		status = st
	}

	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	n := setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	app, err := newIngester(cfg, sqlStore, n, logger).Add(cmd.Context(), model.Application{
		Company:        addApp.company,
		Role:           addApp.role,
		Status:         status,
		Source:         addApp.source,
		Location:       addApp.location,
		Notes:          addApp.notes,
		AppliedDate:    addApp.applied,
		NextActionDate: addApp.nextAction,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s: %s / %s [%s]\n", app.ID, app.Company, app.Role, app.Status)
	return nil
}
