package store

import (
	"time"

	"github.com/amishk599/applytrack/internal/model"
)

// NopStore is a no-op store used in dry-run mode. Nothing is persisted,
// lookups find nothing, and every email appears unprocessed.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) CreateApplication(app model.Application) error { return nil }
func (s *NopStore) UpdateApplication(app model.Application) error { return nil }
func (s *NopStore) UpsertApplication(app model.Application, detail string, move model.StatusPolicy) (model.Transition, error) {
	return model.Transition{Application: app, Created: true}, nil
}
func (s *NopStore) GetApplication(id string) (model.Application, error) {
	return model.Application{}, model.ErrNotFound
}
func (s *NopStore) FindApplication(company, role string) (model.Application, bool, error) {
	return model.Application{}, false, nil
}
func (s *NopStore) ListApplications(status model.Status) ([]model.Application, error) { return nil, nil }
func (s *NopStore) UpdateStatus(id string, status model.Status, detail string) error  { return nil }
func (s *NopStore) DeleteApplication(id string) error                                 { return nil }
func (s *NopStore) ListEvents(applicationID string) ([]model.Event, error)            { return nil, nil }

func (s *NopStore) HasProcessed(emailID string) (bool, error) { return false, nil }
func (s *NopStore) MarkProcessed(emailID string) error        { return nil }
func (s *NopStore) Cleanup(olderThan time.Duration) error     { return nil }
