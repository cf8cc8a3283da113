package notifier

import (
	"log/slog"
	"strings"

	"github.com/amishk599/hireflow/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes composed drafts to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each draft via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each draft's role, skills, links and email size.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(drafts []model.Draft) error {
	for _, d := range drafts {
		n.logger.Info("draft ready",
			"role", d.Posting.Role.String(),
			"skills", strings.Join(d.Posting.Skills(), ", "),
			"links", len(d.Links),
			"email_chars", len(d.Email),
		)
	}
	return nil
}

// NopNotifier discards drafts; used when notification.type is "none".
type NopNotifier struct{}

// NewNopNotifier returns a NopNotifier.
func NewNopNotifier() *NopNotifier { return &NopNotifier{} }

// Notify does nothing.
func (NopNotifier) Notify([]model.Draft) error { return nil }
