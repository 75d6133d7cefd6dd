package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/model"
	"github.com/amishk599/applytrack/internal/store"
)

var (
	ingestSource string
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|-]",
	Short: "Record an application email",
	Long:  "Parses an email and creates the application it describes, or moves an existing application to the email's status.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "where the email came from (default: the file name)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "show what would be recorded without saving or notifying")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := setupStderrLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	text, name, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	source := ingestSource
	if source == "" {
		source = name
	}

	// In dry-run mode, use a NopStore so nothing is persisted.
	var appStore model.ApplicationStore
	var n model.Notifier
	if ingestDryRun {
		logger.Info("dry-run mode enabled, nothing will be saved")
		appStore = store.NewNopStore()
	} else {
		sqlStore, err := openStore(cfg)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		appStore = sqlStore
		n = setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	}

	tr, err := newIngester(cfg, appStore, n, logger).Ingest(cmd.Context(), text, source)
	if err != nil {
		return err
	}

	app := tr.Application
	out := cmd.OutOrStdout()
	switch {
	case tr.Created:
		fmt.Fprintf(out, "created %s: %s / %s [%s]\n", app.ID, app.Company, app.Role, app.Status)
	case tr.Changed():
		fmt.Fprintf(out, "updated %s: %s / %s [%s -> %s]\n", app.ID, app.Company, app.Role, tr.From, app.Status)
	default:
		fmt.Fprintf(out, "unchanged %s: %s / %s [%s]\n", app.ID, app.Company, app.Role, app.Status)
	}
	return nil
}
