package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestWithAddsComponent(t *testing.T) {
	prev := L()
	defer Set(prev)

	var buf bytes.Buffer
	Set(slog.New(slog.NewTextHandler(&buf, nil)))
	With("registry").Info("registry_group_created")

	assert.Contains(t, buf.String(), "component=registry")
	assert.Contains(t, buf.String(), "registry_group_created")
}
