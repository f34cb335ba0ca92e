package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{" WARN ", LevelWarn},
		{"Error", LevelError},
		{"info", LevelInfo},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.expected {
			t.Errorf("ParseLevel(%q): expected %s, got %s", tt.in, tt.expected, got)
		}
	}
}

func TestInitJSONWriter(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	_ = Close()

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelDebug, Format: "json", Writer: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	WithLock(2, "A").Debug("lock granted", "mode", "shared")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "lock granted" {
		t.Errorf("unexpected msg %v", record["msg"])
	}
	if record["resource"] != "A" || record["tx_id"] != float64(2) {
		t.Errorf("missing lock context: %v", record)
	}
	if record["service"] != "ccsim" {
		t.Errorf("missing service field: %v", record)
	}
}

func TestInitTwiceFails(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	_ = Close()

	var buf bytes.Buffer
	if err := Init(Config{Writer: &buf}); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := Init(Config{Writer: &buf}); err == nil {
		t.Error("second Init should fail")
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	_ = Close()

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelWarn, Writer: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Info("hidden")
	WithError(errors.New("boom")).Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("INFO record should be filtered at WARN level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "boom") {
		t.Errorf("expected WARN record with error, got %q", out)
	}
}

func TestGetLoggerLazyInit(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	_ = Close()

	if GetLogger() == nil {
		t.Fatal("GetLogger should initialize a default logger")
	}
}

func TestGetLoggerConcurrentWithClose(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	_ = Close()

	var wg sync.WaitGroup
	var nilSeen sync.Once
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 200 {
				if GetLogger() == nil {
					nilSeen.Do(func() { t.Error("GetLogger returned nil while racing Close") })
				}
			}
		}()
		go func() {
			defer wg.Done()
			for range 200 {
				_ = Close()
			}
		}()
	}
	wg.Wait()
}
