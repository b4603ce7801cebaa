// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandler_Enabled(t *testing.T) {
	testCases := []struct {
		name    string
		level   slog.Level
		handler slog.Level
		want    bool
	}{
		{name: "debug on debug handler", level: slog.LevelDebug, handler: slog.LevelDebug, want: true},
		{name: "debug on info handler", level: slog.LevelDebug, handler: slog.LevelInfo, want: false},
		{name: "error on warn handler", level: slog.LevelError, handler: slog.LevelWarn, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewPrettyHandler(&slog.HandlerOptions{Level: tc.handler})

			assert.Equal(t, tc.want, h.Enabled(context.Background(), tc.level))
		})
	}
}

func TestPrettyHandler_Handle(t *testing.T) {
	testCases := []struct {
		name    string
		level   slog.Level
		message string
		attrs   []any
		options []Option
		want    []string
	}{
		{
			name:    "info with attrs",
			level:   slog.LevelInfo,
			message: "batch committed",
			attrs:   []any{"samples", 2},
			want:    []string{"INFO:", "batch committed", "samples", "2"},
		},
		{
			name:    "warn",
			level:   slog.LevelWarn,
			message: "job failed",
			want:    []string{"WARN:", "job failed"},
		},
		{
			name:    "error",
			level:   slog.LevelError,
			message: "rollback",
			want:    []string{"ERROR:", "rollback"},
		},
		{
			name:    "empty attrs output enabled",
			level:   slog.LevelInfo,
			message: "dispatching jobs",
			options: []Option{WithOutputEmptyAttrs()},
			want:    []string{"INFO:", "dispatching jobs", "{}"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			opts := append([]Option{WithDestinationWriter(buf)}, tc.options...)
			h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug}, opts...)

			record := slog.NewRecord(time.Now(), tc.level, tc.message, 0)
			record.Add(tc.attrs...)

			require.NoError(t, h.Handle(context.Background(), record))

			out := buf.String()
			for _, want := range tc.want {
				assert.Contains(t, out, want)
			}

			assert.True(t, strings.HasSuffix(out, "\n"), "output must end with a newline")
		})
	}
}

func TestPrettyHandler_Handle_ReplaceAttr(t *testing.T) {
	buf := &bytes.Buffer{}
	h := NewPrettyHandler(&slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "token" {
				return slog.String("token", "[REDACTED]")
			}

			return a
		},
	}, WithDestinationWriter(buf))

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "fetching batch file", 0)
	record.Add("token", "hunter2", "url", "git::https://example.com/repo")

	require.NoError(t, h.Handle(context.Background(), record))

	out := buf.String()
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "url")
}

func TestPrettyHandler_Handle_WriteError(t *testing.T) {
	h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug},
		WithDestinationWriter(&failingWriter{}))

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "job started", 0)

	err := h.Handle(context.Background(), record)
	require.ErrorIs(t, err, ErrIoWrite)
}

func TestPrettyHandler_Handle_InnerHandlerError(t *testing.T) {
	h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug},
		WithDestinationWriter(&bytes.Buffer{}))
	h.h = &failingHandler{}

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "job started", 0)

	assert.Error(t, h.Handle(context.Background(), record))
}

func TestPrettyHandler_WithAttrsAndGroupShareState(t *testing.T) {
	h := NewPrettyHandler(&slog.HandlerOptions{})

	withAttrs, ok := h.WithAttrs([]slog.Attr{slog.String("sample", "s1")}).(*PrettyHandler)
	require.True(t, ok)
	assert.Same(t, h.b, withAttrs.b)
	assert.Same(t, h.m, withAttrs.m)

	withGroup, ok := h.WithGroup("pool").(*PrettyHandler)
	require.True(t, ok)
	assert.Same(t, h.b, withGroup.b)
	assert.Same(t, h.m, withGroup.m)
}

func TestFunctionalOptions(t *testing.T) {
	buf := &bytes.Buffer{}
	h := NewPrettyHandler(nil,
		WithDestinationWriter(buf),
		WithColour(),
		WithOutputEmptyAttrs(),
	)

	assert.Equal(t, buf, h.writer)
	assert.True(t, h.colour)
	assert.True(t, h.outputEmptyAttrs)
}

func TestSuppressDefaults(t *testing.T) {
	next := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == "sample" {
			return slog.String("sample", "redacted")
		}

		return a
	}

	suppress := suppressDefaults(next)

	testCases := []struct {
		name string
		attr slog.Attr
		want slog.Attr
	}{
		{name: "time suppressed", attr: slog.Time(slog.TimeKey, time.Now()), want: slog.Attr{}},
		{name: "level suppressed", attr: slog.Any(slog.LevelKey, slog.LevelInfo), want: slog.Attr{}},
		{name: "message suppressed", attr: slog.String(slog.MessageKey, "x"), want: slog.Attr{}},
		{name: "next applies", attr: slog.String("sample", "s1"), want: slog.String("sample", "redacted")},
		{name: "other passes through", attr: slog.String("path", "out"), want: slog.String("path", "out")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := suppress([]string{}, tc.attr)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)
		})
	}
}

type failingHandler struct{}

func (h *failingHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *failingHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("inner handler error")
}

func (h *failingHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *failingHandler) WithGroup(_ string) slog.Handler {
	return h
}

type failingWriter struct{}

func (w *failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("write failed")
}
