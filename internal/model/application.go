package model

import (
	"context"
	"strings"
	"time"
)

// Status is the stage an application is in.
type Status string

const (
	StatusApplied      Status = "APPLIED"
	StatusInterviewing Status = "INTERVIEWING"
	StatusOffer        Status = "OFFER"
	StatusRejected     Status = "REJECTED"
	StatusOnHold       Status = "ON_HOLD"
)

// Statuses lists every status in pipeline order (board column order).
var Statuses = []Status{StatusApplied, StatusInterviewing, StatusOffer, StatusRejected, StatusOnHold}

// ParseStatus maps s to a known Status, ignoring case and surrounding space.
// The second result is false when s names no status.
func ParseStatus(s string) (Status, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// DateLayout is the format of AppliedDate and NextActionDate.
const DateLayout = "2006-01-02"

// Application is one tracked job application.
type Application struct {
	ID       string `json:"id" validate:"required"`
	Company  string `json:"company" validate:"required,max=255"`
	Role     string `json:"role" validate:"required,max=255"`
	Status   Status `json:"status" validate:"required,oneof=APPLIED INTERVIEWING OFFER REJECTED ON_HOLD"`
	Source   string `json:"source,omitempty" validate:"max=255"`
	Location string `json:"location,omitempty" validate:"max=255"`
	Notes    string `json:"notes,omitempty"`
	// Calendar dates as YYYY-MM-DD; empty when unset.
	AppliedDate    string    `json:"applied_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	NextActionDate string    `json:"next_action_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ApplicationPatch lists the editable fields of an application. Nil fields
// are left unchanged; an empty string clears an optional field.
type ApplicationPatch struct {
	Company        *string
	Role           *string
	Source         *string
	Location       *string
	Notes          *string
	AppliedDate    *string
	NextActionDate *string
}

// Empty reports whether the patch changes nothing.
func (p ApplicationPatch) Empty() bool {
	return p == ApplicationPatch{}
}

// Apply copies the set fields of p onto app.
func (p ApplicationPatch) Apply(app *Application) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&app.Company, p.Company)
	set(&app.Role, p.Role)
	set(&app.Source, p.Source)
	set(&app.Location, p.Location)
	set(&app.Notes, p.Notes)
	set(&app.AppliedDate, p.AppliedDate)
	set(&app.NextActionDate, p.NextActionDate)
}

// StatusPolicy decides whether an existing application in status current
// should move to incoming when the same application is recorded again.
type StatusPolicy func(current, incoming Status) bool

// Event records a status an application entered and why.
type Event struct {
	ApplicationID string    `json:"application_id"`
	Status        Status    `json:"status"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// Transition describes what an ingest did to an application.
// From is empty when the application was just created.
type Transition struct {
	Application Application
	From        Status
	Created     bool
}

// Changed reports whether the transition created or moved an application.
func (t Transition) Changed() bool {
	return t.Created || t.From != t.Application.Status
}

// Email is a single message picked up from an inbox.
type Email struct {
	ID       string
	Subject  string
	From     string
	Body     string
	Received time.Time
	Path     string // file it was read from, if any
}

// Text renders the email as the plain text fed to the parser, keeping the
// Subject and From headers so header-based rules can see them.
func (e Email) Text() string {
	var b strings.Builder
	if e.Subject != "" {
		b.WriteString("Subject: " + e.Subject + "\n")
	}
	if e.From != "" {
		b.WriteString("From: " + e.From + "\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(e.Body)
	return b.String()
}

// ApplicationStore persists applications and their status history.
type ApplicationStore interface {
	CreateApplication(app Application) error
	// UpsertApplication atomically creates app, or, when an application with
	// the same company and role exists, moves it to app.Status if move allows.
	UpsertApplication(app Application, detail string, move StatusPolicy) (Transition, error)
	UpdateApplication(app Application) error
	GetApplication(id string) (Application, error)
	FindApplication(company, role string) (Application, bool, error)
	ListApplications(status Status) ([]Application, error)
	UpdateStatus(id string, status Status, detail string) error
	DeleteApplication(id string) error
	ListEvents(applicationID string) ([]Event, error)
}

// EmailLedger tracks which inbox messages have been processed.
type EmailLedger interface {
	HasProcessed(emailID string) (bool, error)
	MarkProcessed(emailID string) error
	Cleanup(olderThan time.Duration) error
}

// EmailSource fetches candidate emails (e.g. from a directory).
type EmailSource interface {
	FetchEmails(ctx context.Context) ([]Email, error)
}

// EmailFilter decides whether an email looks like application traffic.
type EmailFilter interface {
	Match(email Email) bool
}

// Notifier announces application transitions.
type Notifier interface {
	Notify(ctx context.Context, transitions []Transition) error
}
