package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) { panic("boom") }

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(10)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 10}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := d.Delivered(); got != 5 {
		t.Fatalf("expected 5 delivered, got %d", got)
	}
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 events in sink, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if got := d.Delivered(); got != 5 {
		t.Fatalf("emit after close must be ignored, delivered=%d", got)
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// first event is picked up by the worker and blocks in the sink,
	// the second fills the buffer, the rest are dropped
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
		time.Sleep(5 * time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}

	close(sink.release)
	d.Close()
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, Logger: logger}, panicSink{})
	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})
	d.Close()
	if d.Delivered() != 0 {
		t.Fatalf("panicking sink must not count as delivered, got %d", d.Delivered())
	}
	if got := len(hook.AllEntries()); got != 2 {
		t.Fatalf("expected one error entry per panic, got %d", got)
	}
}

func TestDispatcherCloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true}, NoOpSink{})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()
	d.Close()
	if d.Delivered() != 1 {
		t.Fatalf("expected 1 delivered, got %d", d.Delivered())
	}
}

func TestDispatcherCancelledEmitCountsDrop(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: "first"})
	time.Sleep(5 * time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "queued"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "waits"})
	if d.Dropped() != 1 {
		t.Fatalf("expected the cancelled emit to count as dropped, got %d", d.Dropped())
	}

	close(sink.release)
	d.Close()
	if d.Delivered() != 2 {
		t.Fatalf("expected 2 delivered, got %d", d.Delivered())
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "logout", UserID: "u1", Success: true})

	line := strings.TrimSpace(buf.String())
	var decoded Event
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.EventType != "logout" || decoded.UserID != "u1" || !decoded.Success {
		t.Fatalf("unexpected event: %+v", decoded)
	}
}

func TestLogrusSinkLevels(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sink := NewLogrusSink(logger)

	sink.Emit(context.Background(), Event{EventType: "login_success", Success: true, Email: "a@cuc.cr"})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials"})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != logrus.InfoLevel || entries[0].Data["email"] != "a@cuc.cr" {
		t.Fatalf("unexpected success entry: %+v", entries[0])
	}
	if entries[1].Level != logrus.WarnLevel || entries[1].Data["error"] != "invalid_credentials" {
		t.Fatalf("unexpected failure entry: %+v", entries[1])
	}
}

func TestMultiSink(t *testing.T) {
	a, b := NewChannelSink(1), NewChannelSink(1)
	MultiSink{a, nil, b}.Emit(context.Background(), Event{EventType: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatal("expected event fan-out to both sinks")
	}
}
