// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("TestNew: nil slog logger: got err == nil, want err != nil")
	}

	buf := &bytes.Buffer{}
	log, err := New(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	if err != nil {
		t.Fatalf("TestNew: got err == %v, want err == nil", err)
	}

	log.Log(Debug, "token cache hit", "clientID", "fake-client")
	out := buf.String()
	if !strings.Contains(out, "token cache hit") || !strings.Contains(out, "fake-client") {
		t.Errorf("TestNew: output %q lacks the message or fields", out)
	}
	if !strings.Contains(out, "DEBUG") {
		t.Errorf("TestNew: output %q not logged at debug level", out)
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var log *Logger
	// must not panic
	log.Log(Info, "silent")
	(&Logger{}).Log(Err, "also silent")
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(slog.New(slog.NewTextHandler(buf, nil)))
	if err != nil {
		t.Fatalf("TestUnknownLevelDefaultsToInfo: got err == %v, want err == nil", err)
	}
	log.Log(Level("loud"), "message")
	if !strings.Contains(buf.String(), "INFO") {
		t.Errorf("TestUnknownLevelDefaultsToInfo: output %q not logged at info level", buf.String())
	}
}
