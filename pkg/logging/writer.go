package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat maps "json" to FormatJSON and anything else to FormatText
func ParseFormat(s string) Format {
	if s == "json" {
		return FormatJSON
	}
	return FormatText
}

// sink is the shared, lock-protected destination of a logger family.
// Loggers derived with WithFields share their parent's sink.
type sink struct {
	mu     sync.Mutex
	format Format
	level  Level
	now    func() time.Time
	write  func(line []byte) error
	close  func() error
}

// WriterLogger writes log lines to an io.Writer, typically stderr
type WriterLogger struct {
	sink   *sink
	fields Fields
}

// NewWriterLogger creates a logger writing to w
func NewWriterLogger(w io.Writer, format Format, level Level) *WriterLogger {
	return &WriterLogger{
		sink: &sink{
			format: format,
			level:  level,
			now:    time.Now,
			write: func(line []byte) error {
				_, err := w.Write(line)
				return err
			},
		},
	}
}

// Debug logs a debug message
func (l *WriterLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.sink.log(DebugLevel, msg, nil, l.fields, fields)
}

// Info logs an info message
func (l *WriterLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.sink.log(InfoLevel, msg, nil, l.fields, fields)
}

// Warn logs a warning message
func (l *WriterLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.sink.log(WarnLevel, msg, nil, l.fields, fields)
}

// Error logs an error message
func (l *WriterLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.sink.log(ErrorLevel, msg, err, l.fields, fields)
}

// WithFields returns a logger with additional fields
func (l *WriterLogger) WithFields(fields Fields) Logger {
	return &WriterLogger{sink: l.sink, fields: mergeFields(l.fields, fields)}
}

// Close does nothing; the writer is owned by the caller
func (l *WriterLogger) Close() error {
	return nil
}

func (s *sink) log(level Level, msg string, err error, base, extra Fields) {
	if level < s.level {
		return
	}

	all := mergeFields(base, extra)

	var line []byte
	if s.format == FormatJSON {
		var jsonErr error
		line, jsonErr = formatJSON(s.now(), level, msg, err, all)
		if jsonErr != nil {
			return
		}
	} else {
		line = formatText(s.now(), level, msg, err, all)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(line)
}

// formatJSON formats a log entry as a JSON line
func formatJSON(ts time.Time, level Level, msg string, err error, fields Fields) ([]byte, error) {
	entry := map[string]interface{}{
		"timestamp": ts.UTC().Format(time.RFC3339),
		"level":     levelString(level),
		"message":   msg,
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	for k, v := range fields {
		entry[k] = v
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil, jsonErr
	}
	return append(data, '\n'), nil
}

// formatText formats a log entry as a plain text line with sorted fields
func formatText(ts time.Time, level Level, msg string, err error, fields Fields) []byte {
	line := fmt.Sprintf("%s [%s] %s", ts.UTC().Format("2006-01-02T15:04:05.000Z"), levelString(level), msg)

	if err != nil {
		line += fmt.Sprintf(" error=%q", err.Error())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, fields[k])
	}

	return []byte(line + "\n")
}

func mergeFields(base, extra Fields) Fields {
	merged := make(Fields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
