package poller

import (
	"context"

	"github.com/amishk599/applytrack/internal/model"
)

// EmailIngester applies one email's text to the application store.
// Implemented by *ingest.Ingester.
type EmailIngester interface {
	Ingest(ctx context.Context, text, source string) (model.Transition, error)
}
