package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/config"
	"github.com/amishk599/applytrack/internal/inbox"
	"github.com/amishk599/applytrack/internal/ingest"
	"github.com/amishk599/applytrack/internal/model"
	"github.com/amishk599/applytrack/internal/notifier"
	"github.com/amishk599/applytrack/internal/retry"
	"github.com/amishk599/applytrack/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:          "applytrack",
	Short:        "Track job applications from your inbox",
	Long:         "ApplyTrack reads application emails, extracts the company, role, location and status, and keeps a local record of every application.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: APPLYTRACK_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > APPLYTRACK_CONFIG env var > "./config.yaml".
// A missing ./config.yaml yields the defaults; a missing explicit path is an error.
// Variables from ./.env are loaded first so the file can reference them.
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if path == "" {
		if env := os.Getenv("APPLYTRACK_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = "config.yaml"
		}
	}
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// setupStderrLogger is used by commands whose stdout is data (JSON, tables, exports).
func setupStderrLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		slack := notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
		return retry.NewRetryNotifier(slack, cfg.Notification.MaxRetries, cfg.Notification.RetryDelay, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Database, err)
	}
	return st, nil
}

func newIngester(cfg *config.Config, st model.ApplicationStore, n model.Notifier, logger *slog.Logger) *ingest.Ingester {
	return ingest.New(st, n, ingest.Options{
		UnknownCompany:    cfg.Ingest.UnknownCompany,
		UnknownRole:       cfg.Ingest.UnknownRole,
		DefaultLocation:   cfg.Ingest.DefaultLocation,
		DefaultStatus:     cfg.Ingest.DefaultStatus,
		AllowPlaceholders: cfg.Ingest.AllowPlaceholders,
		NotifyStatuses:    cfg.Notification.Statuses,
	}, logger)
}

// readInput returns the email text named by args: a file path, or stdin when
// args is empty or "-". .eml files are decoded and rendered with their headers.
func readInput(args []string, stdin io.Reader) (text, name string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	path := args[0]
	if strings.EqualFold(filepath.Ext(path), ".eml") {
		email, err := inbox.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		return email.Text(), filepath.Base(path), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), filepath.Base(path), nil
}
