package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/applytrack/internal/model"
	"github.com/amishk599/applytrack/internal/store"
)

const (
	offerEmail     = "We are pleased to offer you the Senior Backend Engineer position at Acme Corp. Please find the compensation package details attached."
	appliedEmail   = "Thank you for applying for the Senior Backend Engineer role at Acme Corp. We have received your application and will be in touch."
	interviewEmail = "We would like to schedule a phone interview with you for the Senior Backend Engineer position at Acme Corp."
	rejectionEmail = "Unfortunately, after careful consideration we have decided to move forward with other candidates for this position."
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory ApplicationStore.
type memStore struct {
	mu     sync.Mutex
	apps   map[string]model.Application
	events []model.Event
	err    error
}

func newMemStore() *memStore {
	return &memStore{apps: make(map[string]model.Application)}
}

func (m *memStore) CreateApplication(app model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.find(app.Company, app.Role); ok {
		return model.ErrConflict
	}
	m.apps[app.ID] = app
	m.events = append(m.events, model.Event{ApplicationID: app.ID, Status: app.Status, Detail: "created"})
	return nil
}

func (m *memStore) UpsertApplication(app model.Application, detail string, move model.StatusPolicy) (model.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Transition{}, m.err
	}
	existing, ok := m.find(app.Company, app.Role)
	if !ok {
		m.apps[app.ID] = app
		m.events = append(m.events, model.Event{ApplicationID: app.ID, Status: app.Status, Detail: "created"})
		return model.Transition{Application: app, Created: true}, nil
	}
	tr := model.Transition{Application: existing, From: existing.Status}
	if existing.Status == app.Status || (move != nil && !move(existing.Status, app.Status)) {
		return tr, nil
	}
	existing.Status = app.Status
	m.apps[existing.ID] = existing
	m.events = append(m.events, model.Event{ApplicationID: existing.ID, Status: app.Status, Detail: detail})
	tr.Application = existing
	return tr, nil
}

func (m *memStore) UpdateApplication(app model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[app.ID]; !ok {
		return model.ErrNotFound
	}
	if other, ok := m.find(app.Company, app.Role); ok && other.ID != app.ID {
		return model.ErrConflict
	}
	m.apps[app.ID] = app
	return nil
}

func (m *memStore) GetApplication(id string) (model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return model.Application{}, model.ErrNotFound
	}
	return app, nil
}

func (m *memStore) find(company, role string) (model.Application, bool) {
	for _, app := range m.apps {
		if strings.EqualFold(app.Company, company) && strings.EqualFold(app.Role, role) {
			return app, true
		}
	}
	return model.Application{}, false
}

func (m *memStore) FindApplication(company, role string) (model.Application, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.find(company, role)
	return app, ok, nil
}

func (m *memStore) ListApplications(status model.Status) ([]model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Application
	for _, app := range m.apps {
		if status == "" || app.Status == status {
			out = append(out, app)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatus(id string, status model.Status, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return model.ErrNotFound
	}
	app.Status = status
	m.apps[id] = app
	m.events = append(m.events, model.Event{ApplicationID: id, Status: status, Detail: detail})
	return nil
}

func (m *memStore) DeleteApplication(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.apps, id)
	return nil
}

func (m *memStore) ListEvents(applicationID string) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []model.Transition
	ctx context.Context
	err error
}

func (r *recordingNotifier) Notify(ctx context.Context, transitions []model.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
	r.got = append(r.got, transitions...)
	return r.err
}

func TestIngest_CreatesApplication(t *testing.T) {
	st := newMemStore()
	notif := &recordingNotifier{}
	in := New(st, notif, Options{DefaultLocation: "Unspecified"}, discardLogger())

	tr, err := in.Ingest(context.Background(), appliedEmail, "gmail")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !tr.Created || tr.From != "" {
		t.Errorf("transition = %+v, want created", tr)
	}
	app := tr.Application
	if app.ID == "" {
		t.Error("expected generated ID")
	}
	if app.Company != "Acme Corp" || app.Role != "Senior Backend Engineer" {
		t.Errorf("company/role = %q/%q", app.Company, app.Role)
	}
	if app.Status != model.StatusApplied {
		t.Errorf("Status = %s, want APPLIED", app.Status)
	}
	if app.Location != "Unspecified" {
		t.Errorf("Location = %q, want default location", app.Location)
	}
	if app.Source != "gmail" {
		t.Errorf("Source = %q", app.Source)
	}
	if _, err := st.GetApplication(app.ID); err != nil {
		t.Errorf("application not stored: %v", err)
	}
	if len(notif.got) != 1 {
		t.Errorf("notifications = %d, want 1", len(notif.got))
	}
}

func TestIngest_UpdatesExistingStatus(t *testing.T) {
	st := newMemStore()
	notif := &recordingNotifier{}
	in := New(st, notif, Options{}, discardLogger())

	first, err := in.Ingest(context.Background(), appliedEmail, "")
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := in.Ingest(context.Background(), interviewEmail, "gmail")
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}

	if second.Created {
		t.Error("second ingest should update, not create")
	}
	if second.Application.ID != first.Application.ID {
		t.Errorf("ID = %s, want %s", second.Application.ID, first.Application.ID)
	}
	if second.From != model.StatusApplied || second.Application.Status != model.StatusInterviewing {
		t.Errorf("transition %s -> %s, want APPLIED -> INTERVIEWING", second.From, second.Application.Status)
	}
	if len(st.apps) != 1 {
		t.Errorf("stored applications = %d, want 1", len(st.apps))
	}
	events, _ := st.ListEvents(first.Application.ID)
	if len(events) != 2 || events[1].Detail != "status update from email (gmail)" {
		t.Errorf("events = %+v", events)
	}
	if len(notif.got) != 2 {
		t.Errorf("notifications = %d, want 2", len(notif.got))
	}
}

func TestIngest_SameStatusIsNoop(t *testing.T) {
	st := newMemStore()
	notif := &recordingNotifier{}
	in := New(st, notif, Options{}, discardLogger())

	if _, err := in.Ingest(context.Background(), appliedEmail, ""); err != nil {
		t.Fatal(err)
	}
	tr, err := in.Ingest(context.Background(), appliedEmail, "")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Changed() {
		t.Errorf("transition = %+v, want unchanged", tr)
	}
	if len(st.events) != 1 {
		t.Errorf("events = %d, want 1", len(st.events))
	}
	if len(notif.got) != 1 {
		t.Errorf("notifications = %d, want 1", len(notif.got))
	}
}

func TestIngest_IncompleteExtraction(t *testing.T) {
	st := newMemStore()
	in := New(st, nil, Options{}, discardLogger())

	_, err := in.Ingest(context.Background(), rejectionEmail, "")
	var ie *model.IncompleteError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *IncompleteError", err)
	}
	if len(ie.Missing) != 2 || ie.Missing[0] != "company" || ie.Missing[1] != "role" {
		t.Errorf("Missing = %v", ie.Missing)
	}
	if len(st.apps) != 0 {
		t.Errorf("stored applications = %d, want 0", len(st.apps))
	}
}

func TestIngest_SentinelTreatedAsMissing(t *testing.T) {
	in := New(newMemStore(), nil, Options{}, discardLogger())

	_, err := in.Ingest(context.Background(), "Thanks for applying for the Analyst role at Unknown Company.", "")
	var ie *model.IncompleteError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *IncompleteError", err)
	}
	if len(ie.Missing) != 1 || ie.Missing[0] != "company" {
		t.Errorf("Missing = %v, want [company]", ie.Missing)
	}
}

func TestIngest_Placeholders(t *testing.T) {
	st := newMemStore()
	in := New(st, nil, Options{AllowPlaceholders: true}, discardLogger())

	tr, err := in.Ingest(context.Background(), rejectionEmail, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if tr.Application.Company != "Unknown Company" || tr.Application.Role != "Unknown Role" {
		t.Errorf("company/role = %q/%q", tr.Application.Company, tr.Application.Role)
	}
	if tr.Application.Status != model.StatusRejected {
		t.Errorf("Status = %s, want REJECTED", tr.Application.Status)
	}
}

func TestIngest_NotifyStatusesFilter(t *testing.T) {
	notif := &recordingNotifier{}
	in := New(newMemStore(), notif, Options{NotifyStatuses: []model.Status{model.StatusInterviewing}}, discardLogger())

	if _, err := in.Ingest(context.Background(), appliedEmail, ""); err != nil {
		t.Fatal(err)
	}
	if len(notif.got) != 0 {
		t.Errorf("APPLIED should not notify, got %d", len(notif.got))
	}
	if _, err := in.Ingest(context.Background(), interviewEmail, ""); err != nil {
		t.Fatal(err)
	}
	if len(notif.got) != 1 || notif.got[0].Application.Status != model.StatusInterviewing {
		t.Errorf("notifications = %+v", notif.got)
	}
}

func TestIngest_NotifierErrorDoesNotFail(t *testing.T) {
	notif := &recordingNotifier{err: errors.New("webhook down")}
	in := New(newMemStore(), notif, Options{}, discardLogger())

	if _, err := in.Ingest(context.Background(), appliedEmail, ""); err != nil {
		t.Errorf("Ingest = %v, want nil despite notifier error", err)
	}
}

func TestIngest_StoreErrorWrapped(t *testing.T) {
	st := newMemStore()
	st.err = errors.New("disk full")
	in := New(st, nil, Options{}, discardLogger())

	_, err := in.Ingest(context.Background(), appliedEmail, "")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v, want wrapped store error", err)
	}
}

func TestPreview_DoesNotPersist(t *testing.T) {
	st := newMemStore()
	in := New(st, nil, Options{}, discardLogger())

	app, err := in.Preview(interviewEmail)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if app.ID != "" || app.Status != model.StatusInterviewing {
		t.Errorf("Preview = %+v", app)
	}
	if len(st.apps) != 0 {
		t.Error("Preview stored an application")
	}
}

func TestIngest_FallbackStatusKeepsLaterStage(t *testing.T) {
	st := newMemStore()
	notif := &recordingNotifier{}
	in := New(st, notif, Options{}, discardLogger())

	created, err := in.Ingest(context.Background(), appliedEmail, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.Ingest(context.Background(), offerEmail, ""); err != nil {
		t.Fatal(err)
	}

	// A late confirmation email must not move the application back.
	tr, err := in.Ingest(context.Background(), appliedEmail, "")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Changed() {
		t.Errorf("transition = %s -> %s, want unchanged", tr.From, tr.Application.Status)
	}
	app, _ := st.GetApplication(created.Application.ID)
	if app.Status != model.StatusOffer {
		t.Errorf("Status = %s, want OFFER", app.Status)
	}
	if len(notif.got) != 2 {
		t.Errorf("notifications = %d, want 2", len(notif.got))
	}
}

func TestAllowMove(t *testing.T) {
	in := New(newMemStore(), nil, Options{DefaultStatus: model.StatusOnHold}, discardLogger())

	tests := []struct {
		current, incoming model.Status
		want              bool
	}{
		{model.StatusApplied, model.StatusInterviewing, true},
		{model.StatusApplied, model.StatusOnHold, true},
		{model.StatusInterviewing, model.StatusOffer, true},
		{model.StatusOffer, model.StatusRejected, true},
		{model.StatusOffer, model.StatusApplied, false},
		{model.StatusInterviewing, model.StatusApplied, false},
		{model.StatusInterviewing, model.StatusOnHold, false},
		{model.StatusRejected, model.StatusApplied, false},
	}
	for _, tt := range tests {
		if got := in.allowMove(tt.current, tt.incoming); got != tt.want {
			t.Errorf("allowMove(%s, %s) = %v, want %v", tt.current, tt.incoming, got, tt.want)
		}
	}
}

func TestIngest_ConcurrentSameEmail(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "applytrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	notif := &recordingNotifier{}
	in := New(st, notif, Options{}, discardLogger())

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := in.Ingest(context.Background(), appliedEmail, "gmail"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Ingest: %v", err)
	}

	apps, err := st.ListApplications("")
	if err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 {
		t.Fatalf("applications = %d, want 1", len(apps))
	}
	if len(notif.got) != 1 {
		t.Errorf("notifications = %d, want 1", len(notif.got))
	}
}

func TestIngest_PassesContextToNotifier(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "request")
	notif := &recordingNotifier{}
	in := New(newMemStore(), notif, Options{}, discardLogger())

	if _, err := in.Ingest(ctx, appliedEmail, ""); err != nil {
		t.Fatal(err)
	}
	if notif.ctx == nil || notif.ctx.Value(key{}) != "request" {
		t.Error("notifier did not receive the ingest context")
	}
}

func TestAdd(t *testing.T) {
	st := newMemStore()
	notif := &recordingNotifier{}
	in := New(st, notif, Options{}, discardLogger())
	in.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }

	app, err := in.Add(context.Background(), model.Application{
		Company:        "  Globex ",
		Role:           "SRE",
		Notes:          "referred by Sam",
		NextActionDate: "2026-03-11",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if app.ID == "" || app.Company != "Globex" || app.Status != model.StatusApplied {
		t.Errorf("Add = %+v", app)
	}
	if app.AppliedDate != "2026-03-04" {
		t.Errorf("AppliedDate = %q, want today", app.AppliedDate)
	}
	stored, err := st.GetApplication(app.ID)
	if err != nil || stored.Notes != "referred by Sam" || stored.NextActionDate != "2026-03-11" {
		t.Errorf("stored = %+v, %v", stored, err)
	}
	if len(notif.got) != 1 || !notif.got[0].Created {
		t.Errorf("notifications = %+v", notif.got)
	}

	if _, err := in.Add(context.Background(), model.Application{Company: "globex", Role: "sre"}); !errors.Is(err, model.ErrConflict) {
		t.Errorf("duplicate Add = %v, want ErrConflict", err)
	}
}

func TestAdd_Invalid(t *testing.T) {
	in := New(newMemStore(), nil, Options{}, discardLogger())

	tests := []struct {
		name string
		app  model.Application
	}{
		{"missing company", model.Application{Role: "SRE"}},
		{"missing role", model.Application{Company: "Globex", Role: "   "}},
		{"bad status", model.Application{Company: "Globex", Role: "SRE", Status: "HIRED"}},
		{"bad date", model.Application{Company: "Globex", Role: "SRE", AppliedDate: "03/04/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := in.Add(context.Background(), tt.app); !errors.Is(err, model.ErrInvalid) {
				t.Errorf("Add = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestEdit(t *testing.T) {
	st := newMemStore()
	in := New(st, nil, Options{}, discardLogger())

	app, err := in.Add(context.Background(), model.Application{Company: "Globex", Role: "SRE", Location: "Remote"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.Add(context.Background(), model.Application{Company: "Initech", Role: "SRE"}); err != nil {
		t.Fatal(err)
	}

	notes, next, empty := "call back Friday", "2026-04-01", ""
	got, err := in.Edit(app.ID, model.ApplicationPatch{Notes: &notes, NextActionDate: &next, Location: &empty})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got.Notes != notes || got.NextActionDate != next || got.Location != "" {
		t.Errorf("Edit = %+v", got)
	}
	if got.Company != "Globex" || got.Status != model.StatusApplied {
		t.Errorf("unpatched fields changed: %+v", got)
	}

	badDate := "next week"
	if _, err := in.Edit(app.ID, model.ApplicationPatch{AppliedDate: &badDate}); !errors.Is(err, model.ErrInvalid) {
		t.Errorf("bad date = %v, want ErrInvalid", err)
	}
	blank := " "
	if _, err := in.Edit(app.ID, model.ApplicationPatch{Company: &blank}); !errors.Is(err, model.ErrInvalid) {
		t.Errorf("blank company = %v, want ErrInvalid", err)
	}
	taken := "Initech"
	if _, err := in.Edit(app.ID, model.ApplicationPatch{Company: &taken}); !errors.Is(err, model.ErrConflict) {
		t.Errorf("duplicate = %v, want ErrConflict", err)
	}
	if _, err := in.Edit("missing", model.ApplicationPatch{Notes: &notes}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing = %v, want ErrNotFound", err)
	}
}
