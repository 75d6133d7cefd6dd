package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/config"
	"github.com/amishk599/applytrack/internal/filter"
	"github.com/amishk599/applytrack/internal/inbox"
	"github.com/amishk599/applytrack/internal/model"
	"github.com/amishk599/applytrack/internal/poller"
	"github.com/amishk599/applytrack/internal/scheduler"
	"github.com/amishk599/applytrack/internal/store"
)

var (
	watchOnce   bool
	watchDryRun bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox directory for application emails",
	Long:  "Polls the configured inbox directory, ingesting each new .eml or .txt file. Blocks until SIGINT/SIGTERM.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "poll once and exit")
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "parse emails without saving, notifying or marking them processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"inbox", cfg.Inbox.Dir,
		"interval", cfg.Inbox.PollingInterval.String(),
		"subject_keywords", len(cfg.Inbox.SubjectKeywords),
		"notifier", cfg.Notification.Type,
	)

	// In dry-run mode, use a NopStore so nothing is persisted.
	var appStore model.ApplicationStore
	var ledger model.EmailLedger
	var n model.Notifier
	if watchDryRun {
		logger.Info("dry-run mode enabled, no emails will be marked as processed")
		nop := store.NewNopStore()
		appStore, ledger = nop, nop
	} else {
		sqlStore, err := openStore(cfg)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		appStore, ledger = sqlStore, sqlStore
		n = setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	}

	p := buildPoller(cfg, appStore, ledger, n, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchOnce || watchDryRun {
		if err := p.Poll(ctx); err != nil {
			logger.Error("poll failed", "inbox", p.Name, "error", err)
			os.Exit(1)
		}
		logger.Info("poll complete")
		return nil
	}

	sched := scheduler.NewScheduler([]*poller.InboxPoller{p}, cfg.Inbox.PollingInterval, 0, ledger, cfg.Inbox.Retention, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

// buildPoller wires the inbox directory, subject filter and ingester into a poller.
func buildPoller(cfg *config.Config, st model.ApplicationStore, ledger model.EmailLedger, n model.Notifier, logger *slog.Logger) *poller.InboxPoller {
	source := inbox.NewDirSource(cfg.Inbox.Dir, logger)
	emailFilter := filter.NewSubjectFilter(cfg.Inbox.SubjectKeywords, cfg.Inbox.SubjectExcludeKeywords)
	ing := newIngester(cfg, st, n, logger)
	return poller.NewInboxPoller(cfg.Inbox.Dir, source, emailFilter, ledger, ing, logger)
}
