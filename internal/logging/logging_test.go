package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf, Service: "astro"})

	log.With(String("subject_id", "s1")).Info(context.Background(), "natal report",
		Int("aspects", 12),
		Float64("orb", 6.5),
		Bool("cached", true),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"msg":        "natal report",
		"service":    "astro",
		"subject_id": "s1",
		"aspects":    float64(12),
		"orb":        6.5,
		"cached":     true,
		"error":      "boom",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("record[%q] = %v, want %v", k, rec[k], v)
		}
	}
}

func TestLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}
	log.Warn(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Fatalf("warn record dropped at warn level")
	}
}

func TestRequestIDHelpers(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRequestID returned empty id")
	}
	again, id2 := EnsureRequestID(ctx)
	if id2 != id || RequestIDFromContext(again) != id {
		t.Fatalf("request id not preserved: %q vs %q", id, id2)
	}

	if l := FromContext(context.Background(), nil); l == nil {
		t.Fatalf("FromContext returned nil")
	}
	base := Noop()
	ctx = ContextWithLogger(ctx, base)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("logger not stored on context")
	}
}
