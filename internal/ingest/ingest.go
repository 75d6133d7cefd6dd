// Package ingest turns parsed emails into tracked application records.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/amishk599/applytrack/internal/emailparse"
	"github.com/amishk599/applytrack/internal/model"
)

// Options controls defaulting and notification behaviour.
type Options struct {
	UnknownCompany    string
	UnknownRole       string
	DefaultLocation   string
	DefaultStatus     model.Status
	AllowPlaceholders bool
	NotifyStatuses    []model.Status // empty means every status
}

// Ingester applies parse results to an ApplicationStore.
// It is safe for concurrent use when the store and notifier are.
type Ingester struct {
	store    model.ApplicationStore
	notifier model.Notifier
	opts     Options
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Ingester. notifier may be nil.
func New(store model.ApplicationStore, notifier model.Notifier, opts Options, logger *slog.Logger) *Ingester {
	if opts.UnknownCompany == "" {
		opts.UnknownCompany = "Unknown Company"
	}
	if opts.UnknownRole == "" {
		opts.UnknownRole = "Unknown Role"
	}
	if opts.DefaultStatus == "" {
		opts.DefaultStatus = model.StatusApplied
	}
	return &Ingester{
		store:    store,
		notifier: notifier,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
	}
}

// Preview builds the application an email would produce without touching the store.
// The returned application has no ID.
func (in *Ingester) Preview(text string) (model.Application, error) {
	res := emailparse.Parse(text)

	company, role := res.Company, res.Role
	if strings.EqualFold(company, in.opts.UnknownCompany) {
		company = ""
	}
	if strings.EqualFold(role, in.opts.UnknownRole) {
		role = ""
	}

	var missing []string
	if company == "" {
		missing = append(missing, "company")
	}
	if role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		if !in.opts.AllowPlaceholders {
			return model.Application{}, &model.IncompleteError{Missing: missing}
		}
		if company == "" {
			company = in.opts.UnknownCompany
		}
		if role == "" {
			role = in.opts.UnknownRole
		}
	}

	location := res.Location
	if location == "" {
		location = in.opts.DefaultLocation
	}

	status, ok := model.ParseStatus(string(res.Status))
	if !ok {
		status = in.opts.DefaultStatus
	}

	return model.Application{
		Company:  company,
		Role:     role,
		Status:   status,
		Location: location,
	}, nil
}

// Ingest parses text and records the result. An existing application with
// the same company and role has its status updated; otherwise a new one is
// created. Incomplete extractions return *model.IncompleteError.
//
// A status that carries no progress signal (the default status, or APPLIED)
// never moves an application back from a later stage. Find and create happen
// atomically in the store, so concurrent ingests of one application record
// it once.
func (in *Ingester) Ingest(ctx context.Context, text, source string) (model.Transition, error) {
	app, err := in.Preview(text)
	if err != nil {
		return model.Transition{}, err
	}
	app.Source = source

	now := in.now().UTC()
	app.ID = uuid.NewString()
	app.AppliedDate = now.Format(model.DateLayout)
	app.CreatedAt = now
	app.UpdatedAt = now
	if err := in.validate.Struct(app); err != nil {
		return model.Transition{}, fmt.Errorf("validate application: %w: %w", model.ErrInvalid, err)
	}

	detail := "status update from email"
	if source != "" {
		detail += " (" + source + ")"
	}
	tr, err := in.store.UpsertApplication(app, detail, in.allowMove)
	if err != nil {
		return model.Transition{}, fmt.Errorf("record application: %w", err)
	}

	in.logger.Debug("email ingested",
		"id", tr.Application.ID,
		"company", tr.Application.Company,
		"role", tr.Application.Role,
		"status", tr.Application.Status,
		"created", tr.Created,
	)

	in.announce(ctx, tr)
	return tr, nil
}

// allowMove keeps an application from regressing when a later email carries
// only the fallback status.
func (in *Ingester) allowMove(current, incoming model.Status) bool {
	if incoming != model.StatusApplied && incoming != in.opts.DefaultStatus {
		return true
	}
	return current == model.StatusApplied
}

// Add records a manually entered application. Status defaults to the
// configured default status and AppliedDate to today. A duplicate company
// and role returns model.ErrConflict.
func (in *Ingester) Add(ctx context.Context, app model.Application) (model.Application, error) {
	app.Company = strings.TrimSpace(app.Company)
	app.Role = strings.TrimSpace(app.Role)
	app.Source = strings.TrimSpace(app.Source)
	app.Location = strings.TrimSpace(app.Location)
	app.Notes = strings.TrimSpace(app.Notes)
	if app.Status == "" {
		app.Status = in.opts.DefaultStatus
	}

	now := in.now().UTC()
	app.ID = uuid.NewString()
	if app.AppliedDate == "" {
		app.AppliedDate = now.Format(model.DateLayout)
	}
	app.CreatedAt = now
	app.UpdatedAt = now
	if err := in.validate.Struct(app); err != nil {
		return model.Application{}, fmt.Errorf("%w: %w", model.ErrInvalid, err)
	}
	if err := in.store.CreateApplication(app); err != nil {
		return model.Application{}, err
	}

	in.logger.Debug("application added", "id", app.ID, "company", app.Company, "role", app.Role)
	in.announce(ctx, model.Transition{Application: app, Created: true})
	return app, nil
}

// Edit applies patch to the application with the given ID and returns the
// saved record. Status is not editable here; use the store's UpdateStatus.
func (in *Ingester) Edit(id string, patch model.ApplicationPatch) (model.Application, error) {
	app, err := in.store.GetApplication(id)
	if err != nil {
		return model.Application{}, err
	}
	patch.Apply(&app)
	if err := in.validate.Struct(app); err != nil {
		return model.Application{}, fmt.Errorf("%w: %w", model.ErrInvalid, err)
	}
	if err := in.store.UpdateApplication(app); err != nil {
		return model.Application{}, err
	}
	return in.store.GetApplication(id)
}

func (in *Ingester) announce(ctx context.Context, tr model.Transition) {
	if !tr.Changed() || !in.shouldNotify(tr.Application.Status) || in.notifier == nil {
		return
	}
	if err := in.notifier.Notify(ctx, []model.Transition{tr}); err != nil {
		// The record is already persisted; a failed announcement is not an ingest failure.
		in.logger.Error("notification failed", "id", tr.Application.ID, "error", err)
	}
}

func (in *Ingester) shouldNotify(status model.Status) bool {
	return len(in.opts.NotifyStatuses) == 0 || slices.Contains(in.opts.NotifyStatuses, status)
}
