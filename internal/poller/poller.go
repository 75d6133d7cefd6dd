package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amishk599/applytrack/internal/model"
)

// InboxPoller owns the full poll pipeline for one inbox:
// fetch → filter → dedup → ingest → mark processed.
type InboxPoller struct {
	Name     string
	source   model.EmailSource
	filter   model.EmailFilter
	ledger   model.EmailLedger
	ingester EmailIngester
	logger   *slog.Logger
}

// NewInboxPoller creates a poller wired with all its dependencies.
func NewInboxPoller(
	name string,
	source model.EmailSource,
	filter model.EmailFilter,
	ledger model.EmailLedger,
	ingester EmailIngester,
	logger *slog.Logger,
) *InboxPoller {
	return &InboxPoller{
		Name:     name,
		source:   source,
		filter:   filter,
		ledger:   ledger,
		ingester: ingester,
		logger:   logger,
	}
}

// Poll runs one poll cycle. Emails whose extraction is incomplete are logged
// and marked processed so they are not retried; other ingest failures leave
// the email unmarked for the next cycle.
func (p *InboxPoller) Poll(ctx context.Context) error {
	emails, err := p.source.FetchEmails(ctx)
	if err != nil {
		return fmt.Errorf("polling %s: %w", p.Name, err)
	}

	var matched []model.Email
	for _, email := range emails {
		if p.filter.Match(email) {
			matched = append(matched, email)
		}
	}

	var fresh []model.Email
	for _, email := range matched {
		done, err := p.ledger.HasProcessed(email.ID)
		if err != nil {
			return fmt.Errorf("polling %s: checking processed status: %w", p.Name, err)
		}
		if !done {
			fresh = append(fresh, email)
		}
	}

	var created, updated, incomplete, failed int
	for _, email := range fresh {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		tr, err := p.ingester.Ingest(ctx, email.Text(), p.Name)
		var ie *model.IncompleteError
		switch {
		case errors.As(err, &ie):
			incomplete++
			p.logger.Warn("skipping email with incomplete extraction",
				"email_id", email.ID,
				"subject", email.Subject,
				"missing", ie.Missing,
			)
		case err != nil:
			failed++
			p.logger.Error("ingest failed", "email_id", email.ID, "subject", email.Subject, "error", err)
			continue
		case tr.Created:
			created++
		case tr.Changed():
			updated++
		}

		if err := p.ledger.MarkProcessed(email.ID); err != nil {
			return fmt.Errorf("polling %s: marking processed: %w", p.Name, err)
		}
	}

	p.logger.Info("polled inbox",
		"inbox", p.Name,
		"fetched", len(emails),
		"matched", len(matched),
		"new", len(fresh),
		"created", created,
		"updated", updated,
		"incomplete", incomplete,
		"failed", failed,
	)

	return nil
}
