// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		et   EventType
		want string
	}{
		{EventDispatched, "dispatched"},
		{EventStarted, "started"},
		{EventCompleted, "completed"},
		{EventFailed, "failed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.et.String())
	}
}

type collectingListener struct {
	events chan Event
}

func (l *collectingListener) OnEvent(event Event) {
	l.events <- event
}

func TestChannelReporter_DeliversEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	cr := NewChannelReporter(context.Background(), 8)
	listener := &collectingListener{events: make(chan Event, 8)}
	cr.Listen(listener)

	sent := Event{
		Sample:    "s1",
		Type:      EventStarted,
		Message:   "job started",
		Timestamp: time.Now(),
	}
	cr.Report(sent)

	select {
	case got := <-listener.events:
		assert.Equal(t, "s1", got.Sample)
		assert.Equal(t, EventStarted, got.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cr.Close()
}

func TestChannelReporter_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	cr := NewChannelReporter(context.Background(), 1)
	defer cr.Close()

	cr.Report(Event{Sample: "s1", Type: EventStarted})
	// Buffer is full; this must not block.
	cr.Report(Event{Sample: "s2", Type: EventStarted})

	got := <-cr.Events()
	assert.Equal(t, "s1", got.Sample)
}

func TestChannelReporter_ReportAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	cr := NewChannelReporter(context.Background(), 1)
	cr.Close()

	require.NotPanics(t, func() {
		cr.Report(Event{Sample: "s1", Type: EventCompleted})
	})
}

func TestNullReporter(t *testing.T) {
	nr := NewNullReporter()

	require.NotPanics(t, func() {
		nr.Report(Event{Sample: "s1"})
		nr.Close()
	})
}
