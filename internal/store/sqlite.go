package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/amishk599/applytrack/internal/model"
)

var (
	_ model.ApplicationStore = (*SQLiteStore)(nil)
	_ model.EmailLedger      = (*SQLiteStore)(nil)
)

// SQLiteStore persists applications, their status events and the inbox
// ledger in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS applications (
		id               TEXT PRIMARY KEY,
		company          TEXT NOT NULL,
		role             TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'APPLIED',
		source           TEXT NOT NULL DEFAULT '',
		location         TEXT NOT NULL DEFAULT '',
		notes            TEXT NOT NULL DEFAULT '',
		applied_date     TEXT NOT NULL DEFAULT '',
		next_action_date TEXT NOT NULL DEFAULT '',
		created_at       DATETIME NOT NULL,
		updated_at       DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS application_events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		application_id TEXT NOT NULL,
		status         TEXT NOT NULL,
		detail         TEXT NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_application
		ON application_events (application_id)`,
	`CREATE TABLE IF NOT EXISTS processed_emails (
		email_id     TEXT PRIMARY KEY,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// addedColumns are columns newer than the first applications schema; older
// databases get them through ALTER TABLE.
var addedColumns = []struct{ table, name, def string }{
	{"applications", "applied_date", "TEXT NOT NULL DEFAULT ''"},
	{"applications", "next_action_date", "TEXT NOT NULL DEFAULT ''"},
}

// indexes run after addedColumns. One application per company and role.
var indexes = []string{
	`DROP INDEX IF EXISTS idx_applications_company_role`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_company_role_unique
		ON applications (company COLLATE NOCASE, role COLLATE NOCASE)`,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY when
	// the HTTP server and the inbox watcher share the store. Other processes
	// (a CLI ingest next to serve) wait on the busy timeout instead.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, c := range addedColumns {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", c.table, c.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspecting %s.%s: %w", c.table, c.name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := db.Exec("ALTER TABLE " + c.table + " ADD COLUMN " + c.name + " " + c.def); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", c.table, c.name, err)
		}
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// isConstraint reports whether err is a SQLite constraint violation, such as
// a duplicate company and role.
func isConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// CreateApplication inserts app and records its initial status event.
func (s *SQLiteStore) CreateApplication(app model.Application) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("creating application %s: %w", app.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(insertApplication, applicationArgs(app)...); err != nil {
		if isConstraint(err) {
			return fmt.Errorf("creating application %s/%s: %w", app.Company, app.Role, model.ErrConflict)
		}
		return fmt.Errorf("creating application %s: %w", app.ID, err)
	}
	if err := insertEvent(tx, app.ID, app.Status, "created", app.CreatedAt); err != nil {
		return fmt.Errorf("creating application %s: %w", app.ID, err)
	}
	return tx.Commit()
}

const insertApplication = `INSERT INTO applications
	(id, company, role, status, source, location, notes, applied_date, next_action_date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func applicationArgs(app model.Application) []any {
	return []any{app.ID, app.Company, app.Role, string(app.Status), app.Source, app.Location, app.Notes,
		app.AppliedDate, app.NextActionDate, app.CreatedAt.UTC(), app.UpdatedAt.UTC()}
}

// UpsertApplication creates app, or moves the existing application with the
// same company and role to app.Status. move may veto the status change; a
// vetoed or same-status upsert writes nothing. Both paths run in one
// transaction so concurrent upserts of the same application cannot
// duplicate it.
func (s *SQLiteStore) UpsertApplication(app model.Application, detail string, move model.StatusPolicy) (model.Transition, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return model.Transition{}, fmt.Errorf("upserting application %s/%s: %w", app.Company, app.Role, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(insertApplication+" ON CONFLICT DO NOTHING", applicationArgs(app)...)
	if err != nil {
		return model.Transition{}, fmt.Errorf("upserting application %s/%s: %w", app.Company, app.Role, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := insertEvent(tx, app.ID, app.Status, "created", app.CreatedAt); err != nil {
			return model.Transition{}, fmt.Errorf("creating application %s: %w", app.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return model.Transition{}, fmt.Errorf("creating application %s: %w", app.ID, err)
		}
		return model.Transition{Application: app, Created: true}, nil
	}

	existing, err := scanApplication(tx.QueryRow(selectApplication+
		" WHERE company = ? COLLATE NOCASE AND role = ? COLLATE NOCASE", app.Company, app.Role))
	if err != nil {
		return model.Transition{}, fmt.Errorf("loading application %s/%s: %w", app.Company, app.Role, err)
	}
	tr := model.Transition{Application: existing, From: existing.Status}
	if existing.Status == app.Status || (move != nil && !move(existing.Status, app.Status)) {
		return tr, nil
	}

	now := time.Now()
	if _, err := tx.Exec("UPDATE applications SET status = ?, updated_at = ? WHERE id = ?",
		string(app.Status), now.UTC(), existing.ID); err != nil {
		return model.Transition{}, fmt.Errorf("updating application %s: %w", existing.ID, err)
	}
	if err := insertEvent(tx, existing.ID, app.Status, detail, now); err != nil {
		return model.Transition{}, fmt.Errorf("updating application %s: %w", existing.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Transition{}, fmt.Errorf("updating application %s: %w", existing.ID, err)
	}
	tr.Application.Status = app.Status
	tr.Application.UpdatedAt = now.UTC()
	return tr, nil
}

// UpdateApplication saves app's editable fields. Status is changed only
// through UpdateStatus so every move is recorded as an event.
func (s *SQLiteStore) UpdateApplication(app model.Application) error {
	res, err := s.db.Exec(`UPDATE applications SET company = ?, role = ?, source = ?, location = ?,
		notes = ?, applied_date = ?, next_action_date = ?, updated_at = ? WHERE id = ?`,
		app.Company, app.Role, app.Source, app.Location, app.Notes, app.AppliedDate, app.NextActionDate,
		time.Now().UTC(), app.ID)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("updating application %s to %s/%s: %w", app.ID, app.Company, app.Role, model.ErrConflict)
		}
		return fmt.Errorf("updating application %s: %w", app.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("application %s: %w", app.ID, model.ErrNotFound)
	}
	return nil
}

const selectApplication = `SELECT id, company, role, status, source, location, notes,
	applied_date, next_action_date, created_at, updated_at
	FROM applications`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (model.Application, error) {
	var app model.Application
	var status string
	err := row.Scan(&app.ID, &app.Company, &app.Role, &status, &app.Source, &app.Location, &app.Notes,
		&app.AppliedDate, &app.NextActionDate, &app.CreatedAt, &app.UpdatedAt)
	app.Status = model.Status(status)
	return app, err
}

// GetApplication returns the application with the given ID or model.ErrNotFound.
func (s *SQLiteStore) GetApplication(id string) (model.Application, error) {
	app, err := scanApplication(s.db.QueryRow(selectApplication+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Application{}, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Application{}, fmt.Errorf("loading application %s: %w", id, err)
	}
	return app, nil
}

// FindApplication looks up the most recently updated application for a
// company and role, compared case-insensitively.
func (s *SQLiteStore) FindApplication(company, role string) (model.Application, bool, error) {
	row := s.db.QueryRow(selectApplication+
		` WHERE company = ? COLLATE NOCASE AND role = ? COLLATE NOCASE
		ORDER BY updated_at DESC LIMIT 1`, company, role)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Application{}, false, nil
	}
	if err != nil {
		return model.Application{}, false, fmt.Errorf("finding application %s/%s: %w", company, role, err)
	}
	return app, true, nil
}

// ListApplications returns applications newest first. An empty status lists all.
func (s *SQLiteStore) ListApplications(status model.Status) ([]model.Application, error) {
	query := selectApplication
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY updated_at DESC, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// UpdateStatus moves an application to status and records an event.
func (s *SQLiteStore) UpdateStatus(id string, status model.Status, detail string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("updating application %s: %w", id, err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec("UPDATE applications SET status = ?, updated_at = ? WHERE id = ?",
		string(status), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("updating application %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("application %s: %w", id, model.ErrNotFound)
	}
	if err := insertEvent(tx, id, status, detail, now); err != nil {
		return fmt.Errorf("updating application %s: %w", id, err)
	}
	return tx.Commit()
}

// DeleteApplication removes an application and its events.
func (s *SQLiteStore) DeleteApplication(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting application %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM application_events WHERE application_id = ?", id); err != nil {
		return fmt.Errorf("deleting events of %s: %w", id, err)
	}
	res, err := tx.Exec("DELETE FROM applications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting application %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("application %s: %w", id, model.ErrNotFound)
	}
	return tx.Commit()
}

// ListEvents returns an application's status history, oldest first.
func (s *SQLiteStore) ListEvents(applicationID string) ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT application_id, status, detail, created_at
		FROM application_events WHERE application_id = ? ORDER BY id`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", applicationID, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var status string
		if err := rows.Scan(&e.ApplicationID, &status, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Status = model.Status(status)
		events = append(events, e)
	}
	return events, rows.Err()
}

func insertEvent(tx *sql.Tx, id string, status model.Status, detail string, at time.Time) error {
	_, err := tx.Exec(`INSERT INTO application_events (application_id, status, detail, created_at)
		VALUES (?, ?, ?, ?)`, id, string(status), detail, at.UTC())
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// HasProcessed returns true if the given email ID has already been recorded.
func (s *SQLiteStore) HasProcessed(emailID string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM processed_emails WHERE email_id = ?", emailID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking processed status for %s: %w", emailID, err)
	}
	return true, nil
}

// MarkProcessed records an email ID. If it already exists the call is a no-op.
func (s *SQLiteStore) MarkProcessed(emailID string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO processed_emails (email_id) VALUES (?)", emailID)
	if err != nil {
		return fmt.Errorf("marking email %s as processed: %w", emailID, err)
	}
	return nil
}

// Cleanup deletes ledger entries older than the given duration.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).UTC()
	_, err := s.db.Exec("DELETE FROM processed_emails WHERE processed_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up processed emails older than %v: %w", olderThan, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
