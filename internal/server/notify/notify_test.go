package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	n := NewLogNotifier(log)
	u := &models.User{ID: "u1", Name: "Kelly", Email: "kelly@example.com"}

	n.Welcome(context.Background(), u)
	n.Goodbye(context.Background(), u)

	out := buf.String()
	assert.Contains(t, out, `msg="welcome notice"`)
	assert.Contains(t, out, `msg="goodbye notice"`)
	assert.Contains(t, out, "module=notify")
	assert.Contains(t, out, "email=kelly@example.com")
}
