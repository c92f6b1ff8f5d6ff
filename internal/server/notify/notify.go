// Package notify delivers account lifecycle notices.
package notify

import (
	"context"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
)

// Notifier is told about account creation and removal. Delivery failures are
// the notifier's concern; callers never fail because of them.
type Notifier interface {
	Welcome(ctx context.Context, user *models.User)
	Goodbye(ctx context.Context, user *models.User)
}

// LogNotifier records notices in the structured log instead of sending mail.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("module", "notify")}
}

func (n *LogNotifier) Welcome(ctx context.Context, user *models.User) {
	n.log.Info(ctx, "welcome notice", "user_id", user.ID, "email", user.Email, "name", user.Name)
}

func (n *LogNotifier) Goodbye(ctx context.Context, user *models.User) {
	n.log.Info(ctx, "goodbye notice", "user_id", user.ID, "email", user.Email, "name", user.Name)
}
