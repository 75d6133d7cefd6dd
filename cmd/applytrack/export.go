package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/export"
	"github.com/amishk599/applytrack/internal/model"
)

var (
	exportFormat string
	exportOut    string
	exportStatus string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export applications to a spreadsheet",
	Long:  "Writes all applications to an .xlsx workbook or a CSV file. Use --out - to write to stdout.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "xlsx or csv (default: from the --out extension)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "applications.xlsx", "output file, or - for stdout")
	exportCmd.Flags().StringVarP(&exportStatus, "status", "s", "", "only export applications in this status")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := setupStderrLogger(debug)

	format, err := exportFormatFor(exportFormat, exportOut)
	if err != nil {
		return err
	}
	var status model.Status
	if exportStatus != "" {
		st, ok := model.ParseStatus(exportStatus)
		if !ok {
			return fmt.Errorf("unknown status %q", exportStatus)
		}
		status = st
	}

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

	apps, err := sqlStore.ListApplications(status)
	if err != nil {
		return err
	}

	if exportOut == "-" {
		return export.Applications(cmd.OutOrStdout(), apps, format)
	}
	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	if err := export.Applications(f, apps, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", exportOut, err)
	}
	logger.Info("export written", "file", exportOut, "format", string(format), "applications", len(apps))
	return nil
}

// exportFormatFor picks the explicit format, else infers it from the output
// extension. Stdout without a format defaults to CSV.
func exportFormatFor(format, out string) (export.Format, error) {
	if format != "" {
		return export.ParseFormat(format)
	}
	if out == "-" {
		return export.FormatCSV, nil
	}
	if ext := strings.TrimPrefix(filepath.Ext(out), "."); ext != "" {
		return export.ParseFormat(ext)
	}
	return export.FormatXLSX, nil
}
