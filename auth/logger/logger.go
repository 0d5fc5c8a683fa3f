// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package logger provides the explicit logging configuration object credentials
// accept at construction time. There is no process-wide toggle; a credential
// without a logger stays silent.
package logger

import (
	"context"
	"fmt"
	"log/slog"
)

type Level string

const (
	Info  Level = "info"
	Err   Level = "error"
	Warn  Level = "warn"
	Debug Level = "debug"
)

// Logger wraps a *slog.Logger for structured logging inside credentials.
type Logger struct {
	logging *slog.Logger
}

// New creates a logger instance from an slog logger.
func New(slogLogger *slog.Logger) (*Logger, error) {
	if slogLogger == nil {
		return nil, fmt.Errorf("invalid input; expected *slog.Logger")
	}
	return &Logger{logging: slogLogger}, nil
}

// Log logs message at level with optional structured fields. A nil *Logger or
// a zero Logger discards the entry, so callers never nil-check.
func (a *Logger) Log(level Level, message string, fields ...any) {
	if a == nil || a.logging == nil {
		return
	}
	var slogLevel slog.Level
	switch level {
	case Info:
		slogLevel = slog.LevelInfo
	case Err:
		slogLevel = slog.LevelError
	case Warn:
		slogLevel = slog.LevelWarn
	case Debug:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}
	a.logging.Log(context.Background(), slogLevel, message, fields...)
}
