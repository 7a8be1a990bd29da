package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBufferedEmitterRecordsByPath(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{Path: "a", Msg: "run_started", Time: time.Now()})
	b.Emit(Event{Path: "a", Msg: "run_ended", Time: time.Now()})
	b.Emit(Event{Path: "b", Msg: "run_started", Time: time.Now()})

	a := b.History("a")
	if len(a) != 2 {
		t.Fatalf("len(History(\"a\")) = %d, want 2", len(a))
	}
	if a[0].Msg != "run_started" || a[1].Msg != "run_ended" {
		t.Fatalf("History(\"a\") order = %+v", a)
	}
	if len(b.History("b")) != 1 {
		t.Fatalf("len(History(\"b\")) = %d, want 1", len(b.History("b")))
	}
}

func TestBufferedEmitterEmitBatch(t *testing.T) {
	b := NewBufferedEmitter()
	err := b.EmitBatch(context.Background(), []Event{
		{Path: "a", Msg: "one"},
		{Path: "a", Msg: "two"},
	})
	if err != nil {
		t.Fatalf("EmitBatch err = %v", err)
	}
	if len(b.History("a")) != 2 {
		t.Fatalf("len(History(\"a\")) = %d, want 2", len(b.History("a")))
	}
}

func TestBufferedEmitterClearSpecificPath(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{Path: "a", Msg: "x"})
	b.Emit(Event{Path: "b", Msg: "y"})

	b.Clear("a")
	if len(b.History("a")) != 0 {
		t.Fatal("History(\"a\") should be empty after Clear(\"a\")")
	}
	if len(b.History("b")) != 1 {
		t.Fatal("Clear(\"a\") must not affect path b")
	}
}

func TestBufferedEmitterClearAll(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{Path: "a", Msg: "x"})
	b.Emit(Event{Path: "b", Msg: "y"})

	b.Clear("")
	if len(b.History("a")) != 0 || len(b.History("b")) != 0 {
		t.Fatal("Clear(\"\") should remove every path's history")
	}
}

func TestBufferedEmitterHistoryIsACopy(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{Path: "a", Msg: "one"})

	snapshot := b.History("a")
	snapshot[0].Msg = "mutated"

	if b.History("a")[0].Msg != "one" {
		t.Fatal("History() must return a copy, not a reference into internal storage")
	}
}

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, false)
	l.Emit(Event{Path: "p", Msg: "run_started", Meta: map[string]any{"attempt": 0}})

	out := buf.String()
	if !strings.Contains(out, "[run_started]") || !strings.Contains(out, "path=p") {
		t.Fatalf("text output = %q, missing expected fields", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, true)
	l.Emit(Event{Path: "p", Msg: "run_ended"})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode JSON line: %v, got %q", err, buf.String())
	}
	if decoded.Path != "p" || decoded.Msg != "run_ended" {
		t.Fatalf("decoded = %+v, want Path=p Msg=run_ended", decoded)
	}
}

func TestLogEmitterEmitBatch(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, false)
	err := l.EmitBatch(context.Background(), []Event{{Path: "p", Msg: "one"}, {Path: "p", Msg: "two"}})
	if err != nil {
		t.Fatalf("EmitBatch err = %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
}

func TestNullEmitterDiscardsEverything(t *testing.T) {
	n := NewNullEmitter()
	n.Emit(Event{Path: "p", Msg: "x"})
	if err := n.EmitBatch(context.Background(), []Event{{Path: "p"}}); err != nil {
		t.Fatalf("EmitBatch err = %v, want nil", err)
	}
	if err := n.Flush(context.Background()); err != nil {
		t.Fatalf("Flush err = %v, want nil", err)
	}
}
