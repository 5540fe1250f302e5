package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Level:     slog.LevelDebug,
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestContextMiddleware(t *testing.T) {
	var buf bytes.Buffer
	mw := ContextMiddleware(bufferLogger(&buf), func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req_abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Errorf("log line missing request id: %q", buf.String())
	}

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("empty request id logged: %q", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Logger == nil {
		t.Fatal("FromContext returned no logger")
	}
	if l.Component() != "unknown" {
		t.Errorf("Component() = %q, want unknown", l.Component())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf))
	ctx := context.Background()

	sl.LogExport(ctx, "u1", "csv", 3, 512)
	sl.LogError(ctx, "Report run failed", errors.New("boom"), ComponentReport, OpRun, NewFields().WithCaller("u1", "user"))

	out := buf.String()
	for _, want := range []string{
		"export_format=csv", "entry_count=3", "bytes=512",
		"level=ERROR", "error=boom", "operation=run", "role=user",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogger_ComponentOncePerRecord(t *testing.T) {
	var buf bytes.Buffer
	base := bufferLogger(&buf)
	derived := base.With(FieldRequestID, "req_1").WithComponent(ComponentTrace)
	sl := NewStructuredLogger(derived)

	req := httptest.NewRequest(http.MethodGet, "/api/report?timeframe=week", nil)
	ctx := context.Background()
	sl.LogHTTPStart(ctx, req, "10.0.0.1")
	sl.LogHTTPEnd(ctx, req, http.StatusOK, 12, "10.0.0.1")
	derived.InfoContext(ctx, "plain")
	derived.ErrorContext(ctx, "explicit", FieldComponent, ComponentSecurity)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	wants := []string{"component=http", "component=http", "component=trace", "component=security"}
	for i, line := range lines {
		if n := strings.Count(line, "component="); n != 1 {
			t.Errorf("line %d has %d component attrs: %s", i, n, line)
		}
		if !strings.Contains(line, wants[i]) {
			t.Errorf("line %d missing %q: %s", i, wants[i], line)
		}
		if !strings.Contains(line, "request_id=req_1") {
			t.Errorf("line %d lost the request id: %s", i, line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
