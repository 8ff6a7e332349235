package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONFormatTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})
	l.Info("hello", FieldUserID, "u1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v: %s", err, buf.String())
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldUserID] != "u1" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestStructuredLoggerMutationAndError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	ctx := context.Background()

	sl.LogMutation(ctx, OpCreate, "u1", "expense", "e1", 7)
	sl.LogError(ctx, "publish failed", errors.New("broker down"), ComponentAMQP, OpPublish, nil)

	out := buf.String()
	for _, want := range []string{"entity=expense", "entity_id=e1", "version=7", "error=\"broker down\"", "component=amqp"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a default logger")
	}
	l := Discard()
	r := httptest.NewRequest("GET", "/", nil)
	ctx := WithLogger(r.Context(), l)
	if FromContext(ctx) != l {
		t.Fatal("expected the stored logger")
	}
}
