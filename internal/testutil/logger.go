// Package testutil provides shared helpers for package tests.
package testutil

import (
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns a debug-level logger routed through t.Log, so log
// output shows up only for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
