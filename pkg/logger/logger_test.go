package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithBookingID(ctx, "bk-42")
	logg.Info(ctx, "booking.created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("expected request_id, got %v", entry["request_id"])
	}
	if entry["booking_id"] != "bk-42" {
		t.Errorf("expected booking_id, got %v", entry["booking_id"])
	}
	if entry["service"] != "test" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Error("expected debug level")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Error("expected info fallback for empty value")
	}
	if ParseLevel("garbage") != zerolog.InfoLevel {
		t.Error("expected info fallback for unknown value")
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "boom", nil)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["stack"] == nil || entry["stack"] == "" {
		t.Error("expected stack trace on error log")
	}
}
