package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	// Keep test output free of escape sequences.
	color.NoColor = true
}

// TestNilLogger tests that a nil logger can be used without panicking.
func TestNilLogger(t *testing.T) {
	var logger *Logger
	logger.Error("error")
	logger.Warnf("warning %d", 1)
	logger.Info("info")
	logger.Tracef("trace %s", "value")
	if logger.Sublogger("child") != nil {
		t.Error("sublogger of nil logger is non-nil")
	}
	if logger.Level() != LevelDisabled {
		t.Error("nil logger reports non-disabled level")
	}
	fmt.Fprintln(logger.Writer(LevelInfo), "discarded")
}

// TestLevelFiltering tests that messages above the logger's level are dropped.
func TestLevelFiltering(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := NewLogger(LevelInfo, buffer)

	logger.Info("visible")
	logger.Debug("hidden")
	logger.Trace("hidden")
	logger.Warnf("warned %d", 2)

	output := buffer.String()
	if !strings.Contains(output, "visible") {
		t.Error("info message missing from output:", output)
	}
	if strings.Contains(output, "hidden") {
		t.Error("debug or trace message present in output:", output)
	}
	if !strings.Contains(output, "warned 2") {
		t.Error("warning message missing from output:", output)
	}
	if lines := strings.Count(output, "\n"); lines != 2 {
		t.Error("unexpected line count:", lines, "!=", 2)
	}
}

// TestSubloggerPrefix tests that subloggers compose dotted prefixes.
func TestSubloggerPrefix(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := NewLogger(LevelDebug, buffer).Sublogger("provider").Sublogger("created")
	logger.Debug("polling")
	if !strings.Contains(buffer.String(), "[provider.created] polling") {
		t.Error("sublogger prefix missing from output:", buffer.String())
	}
}

// TestWriterSplitsLines tests that the logger's writer emits one log line per
// input line, buffering incomplete fragments.
func TestWriterSplitsLines(t *testing.T) {
	buffer := &bytes.Buffer{}
	writer := NewLogger(LevelInfo, buffer).Writer(LevelInfo)
	writer.Write([]byte("first\r\nsec"))
	if strings.Count(buffer.String(), "\n") != 1 {
		t.Fatal("incomplete line fragment was written early:", buffer.String())
	}
	writer.Write([]byte("ond\n"))
	output := buffer.String()
	if !strings.Contains(output, "first\n") || !strings.Contains(output, "second\n") {
		t.Error("writer output missing expected lines:", output)
	}
}

// TestLevelTextRoundTrip tests text unmarshaling for valid and invalid level
// names.
func TestLevelTextRoundTrip(t *testing.T) {
	var level Level
	if err := level.UnmarshalText([]byte("debug")); err != nil {
		t.Fatal("unable to unmarshal valid level:", err)
	} else if level != LevelDebug {
		t.Error("unmarshaled level mismatch:", level, "!=", LevelDebug)
	}
	if err := level.UnmarshalText([]byte("verbose")); err == nil {
		t.Error("unmarshaling invalid level succeeded")
	}
}
