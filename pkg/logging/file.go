package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// FileLogger implements Logger with file output and size-based rotation
type FileLogger struct {
	sink   *sink
	file   *rotatingFile
	fields Fields
}

// rotatingFile is only touched while the owning sink's mutex is held
type rotatingFile struct {
	config FileLoggerConfig
	file   *os.File
	size   int64
}

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	rf := &rotatingFile{config: config, file: file, size: info.Size()}

	return &FileLogger{
		sink: &sink{
			format: config.Format,
			level:  config.Level,
			now:    time.Now,
			write:  rf.write,
			close:  rf.close,
		},
		file: rf,
	}, nil
}

// Debug logs a debug message
func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.sink.log(DebugLevel, msg, nil, l.fields, fields)
}

// Info logs an info message
func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.sink.log(InfoLevel, msg, nil, l.fields, fields)
}

// Warn logs a warning message
func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.sink.log(WarnLevel, msg, nil, l.fields, fields)
}

// Error logs an error message
func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.sink.log(ErrorLevel, msg, err, l.fields, fields)
}

// WithFields returns a logger with additional fields sharing the same file
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{sink: l.sink, file: l.file, fields: mergeFields(l.fields, fields)}
}

// Close flushes and closes the logger
func (l *FileLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.close()
}

func (f *rotatingFile) write(line []byte) error {
	if f.file == nil {
		return os.ErrClosed
	}
	if f.config.MaxSize > 0 && f.size >= f.config.MaxSize {
		f.rotate()
	}
	n, err := f.file.Write(line)
	f.size += int64(n)
	return err
}

func (f *rotatingFile) close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and
// reopens an empty file
func (f *rotatingFile) rotate() {
	f.file.Close()

	path := f.config.Path
	for i := f.config.MaxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", path, i), fmt.Sprintf("%s.%d", path, i+1))
	}
	os.Rename(path, path+".1")

	if f.config.MaxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", path, f.config.MaxBackups+1))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		f.file = nil
		return
	}
	f.file = file
	f.size = 0
}
