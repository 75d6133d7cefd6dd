package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/applytrack/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes application transitions to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each transition via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each transition with company, role, status, and the previous status.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(ctx context.Context, transitions []model.Transition) error {
	for _, tr := range transitions {
		app := tr.Application
		args := []any{"id", app.ID, "company", app.Company, "role", app.Role, "status", app.Status}
		if tr.Created {
			n.logger.InfoContext(ctx, "new application", args...)
			continue
		}
		args = append(args, "from", tr.From)
		if app.Location != "" {
			args = append(args, "location", app.Location)
		}
		n.logger.InfoContext(ctx, "application status changed", args...)
	}
	return nil
}
