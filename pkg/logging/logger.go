package logging

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// timestampFormat is the format used for log line timestamps.
const timestampFormat = "2006-01-02 15:04:05.000000"

// writer is an io.Writer that splits its input stream into lines and writes
// those lines to an underlying logger.
type writer struct {
	// callback is the logging callback.
	callback func(string)
	// buffer is any incomplete line fragment left over from a previous write.
	buffer []byte
}

// trimCarriageReturn trims any single trailing carriage return from the end of
// a byte slice.
func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.Write.
func (w *writer) Write(buffer []byte) (int, error) {
	// Append the data to our internal buffer.
	w.buffer = append(w.buffer, buffer...)

	// Process all complete lines in the buffer.
	var processed int
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.callback(string(trimCarriageReturn(remaining[:index])))
		processed += index + 1
		remaining = remaining[index+1:]
	}

	// Shift any leftover fragment to the front of the buffer.
	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	// Done.
	return len(buffer), nil
}

// sink serializes line output to a shared destination.
type sink struct {
	// lock serializes writes to output.
	lock sync.Mutex
	// output is the underlying destination.
	output io.Writer
}

// write writes a single line to the destination.
func (s *sink) write(line string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	io.WriteString(s.output, line)
}

// Logger is the main logger type. It has the novel property that it still
// functions if nil, but it doesn't log anything. Subloggers share their
// parent's level and destination. It is safe for concurrent usage.
type Logger struct {
	// level is the maximum level that will be emitted.
	level Level
	// prefix is any prefix specified for the logger.
	prefix string
	// sink is the shared output destination.
	sink *sink
}

// NewLogger creates a new root logger that writes lines at or below the
// specified level to the specified destination.
func NewLogger(level Level, output io.Writer) *Logger {
	return &Logger{
		level: level,
		sink:  &sink{output: output},
	}
}

// Sublogger creates a new sublogger with the specified name.
func (l *Logger) Sublogger(name string) *Logger {
	// If the logger is nil, then the sublogger will be as well.
	if l == nil {
		return nil
	}

	// Compute the new prefix.
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}

	// Create the new logger.
	return &Logger{
		level:  l.level,
		prefix: prefix,
		sink:   l.sink,
	}
}

// Level returns the logger's level. A nil logger reports LevelDisabled.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelDisabled
	}
	return l.level
}

// enabled returns whether or not the specified level would be emitted.
func (l *Logger) enabled(level Level) bool {
	return l != nil && level != LevelDisabled && level <= l.level
}

// output is the internal logging method.
func (l *Logger) output(level Level, message string) {
	// Strip any trailing newline since we add our own.
	message = strings.TrimSuffix(message, "\n")

	// Add a prefix if necessary.
	if l.prefix != "" {
		message = fmt.Sprintf("[%s] %s", l.prefix, message)
	}

	// Format and write the line.
	l.sink.write(fmt.Sprintf("%s %-5s %s\n",
		time.Now().Format(timestampFormat), level.String(), message,
	))
}

// Error logs errors with semantics equivalent to fmt.Print, colored red.
func (l *Logger) Error(v ...interface{}) {
	if l.enabled(LevelError) {
		l.output(LevelError, color.RedString("%s", fmt.Sprint(v...)))
	}
}

// Errorf logs errors with semantics equivalent to fmt.Printf, colored red.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.enabled(LevelError) {
		l.output(LevelError, color.RedString(format, v...))
	}
}

// Warn logs warnings with semantics equivalent to fmt.Print, colored yellow.
func (l *Logger) Warn(v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.output(LevelWarn, color.YellowString("%s", fmt.Sprint(v...)))
	}
}

// Warnf logs warnings with semantics equivalent to fmt.Printf, colored yellow.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.output(LevelWarn, color.YellowString(format, v...))
	}
}

// Info logs information with semantics equivalent to fmt.Print.
func (l *Logger) Info(v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(LevelInfo, fmt.Sprint(v...))
	}
}

// Infof logs information with semantics equivalent to fmt.Printf.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(LevelInfo, fmt.Sprintf(format, v...))
	}
}

// Debug logs information with semantics equivalent to fmt.Print, but only if
// the logger's level permits debugging output.
func (l *Logger) Debug(v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(LevelDebug, fmt.Sprint(v...))
	}
}

// Debugf logs information with semantics equivalent to fmt.Printf, but only
// if the logger's level permits debugging output.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(LevelDebug, fmt.Sprintf(format, v...))
	}
}

// Trace logs information with semantics equivalent to fmt.Print, but only if
// the logger's level permits tracing output.
func (l *Logger) Trace(v ...interface{}) {
	if l.enabled(LevelTrace) {
		l.output(LevelTrace, fmt.Sprint(v...))
	}
}

// Tracef logs information with semantics equivalent to fmt.Printf, but only
// if the logger's level permits tracing output.
func (l *Logger) Tracef(format string, v ...interface{}) {
	if l.enabled(LevelTrace) {
		l.output(LevelTrace, fmt.Sprintf(format, v...))
	}
}

// Writer returns an io.Writer that logs each written line at the specified
// level.
func (l *Logger) Writer(level Level) io.Writer {
	// If the output would be discarded anyway, then save the overhead of
	// scanning lines.
	if !l.enabled(level) {
		return io.Discard
	}

	// Create the writer.
	return &writer{
		callback: func(s string) {
			l.output(level, s)
		},
	}
}
