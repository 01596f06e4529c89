package eventpool

import (
	"os"
	"testing"
)

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	l := NewNoOpLogger()
	if l.IsEnabled(LevelError) {
		t.Fatal("no-op logger should never report enabled")
	}
	l.Log(LogEntry{Level: LevelError, Message: "should be discarded"})
}

func TestDefaultLoggerRespectsLevel(t *testing.T) {
	l := NewDefaultLogger(LevelWarn)
	if l.IsEnabled(LevelDebug) {
		t.Fatal("debug should not be enabled at warn level")
	}
	if !l.IsEnabled(LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
	l.SetLevel(LevelDebug)
	if !l.IsEnabled(LevelDebug) {
		t.Fatal("debug should be enabled after SetLevel(LevelDebug)")
	}
}

func TestDefaultLoggerJSONModeWritesToFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "eventpool-log-*.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	l := &DefaultLogger{Out: f}
	l.SetLevel(LevelInfo)
	l.Log(LogEntry{Level: LevelInfo, Category: "test", Message: "hello"})

	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Fatal("expected log line written to file")
	}
}

func TestSetStructuredLoggerConfiguresDefault(t *testing.T) {
	t.Cleanup(func() { SetStructuredLogger(nil) })

	captured := make(chan LogEntry, 1)
	SetStructuredLogger(&capturingLogger{entries: captured})

	p, err := New(WithMaxThreads(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		p.Destroy()
		_ = p.ReconfigureThreads(0)
	})

	select {
	case entry := <-captured:
		if entry.Category != "pool" {
			t.Fatalf("expected a pool-category entry from the global default logger, got %+v", entry)
		}
	default:
		t.Fatal("New did not log through the package-level default logger")
	}
}

type capturingLogger struct {
	entries chan LogEntry
}

func (c *capturingLogger) Log(entry LogEntry) {
	select {
	case c.entries <- entry:
	default:
	}
}

func (c *capturingLogger) IsEnabled(LogLevel) bool { return true }

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Fatalf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}
