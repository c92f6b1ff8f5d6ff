package server

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
)

func TestWarnInsecureDefaults(t *testing.T) {
	var c config.Config
	c.LoadDefaults()

	var buf bytes.Buffer
	warnInsecureDefaults(context.Background(), logging.NewJSON(&buf, "info"), &c)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "TASKKEEPER_SECRET_KEY")

	buf.Reset()
	c.SecretKey = "a-real-secret"
	warnInsecureDefaults(context.Background(), logging.NewJSON(&buf, "info"), &c)
	assert.Empty(t, buf.String())
}

func TestNewAvatarStore_UnknownBackend(t *testing.T) {
	c := &config.Config{AvatarBackend: "ftp"}
	_, err := newAvatarStore(context.Background(), c)
	assert.ErrorContains(t, err, `unknown avatar backend "ftp"`)
}
