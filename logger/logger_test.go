package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWithWriter(t *testing.T) {
	os.Setenv("LOG_LEVEL", "info")
	defer os.Unsetenv("LOG_LEVEL")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	Info("list fetched: %d items", 3)
	assert.Contains(t, buf.String(), "list fetched: 3 items")

	buf.Reset()
	Default.Debug().Msg("hidden")
	assert.NotContains(t, buf.String(), "hidden")
	assert.False(t, IsDebugEnabled())
}

func TestComponentLoggers(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Unsetenv("LOG_LEVEL")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	ForCrawler("detail").Info().Int("index", 2).Msg("opening detail")
	out := buf.String()
	assert.Contains(t, out, "opening detail")
	assert.Contains(t, out, "stage=detail")
	assert.Contains(t, out, "component=crawler")

	buf.Reset()
	LogError("worker", errors.New("boom"), "job %s failed", "list")
	assert.Contains(t, buf.String(), "job list failed")
	assert.Contains(t, buf.String(), "boom")
}
