package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultLogDir     = "logs"
	defaultBufferSize = 32 * 1024
)

type Options struct {
	// Dir holds <name>.log. Defaults to ./logs.
	Dir string
	// Level overrides LOG_LEVEL when set.
	Level string
	// Console mirrors every entry to stdout.
	Console bool
}

// Logger owns the writers behind a logrus.Logger so they can be flushed on
// shutdown.
type Logger struct {
	*logrus.Logger
	file *AsyncFileWriter
}

func NewLogger(name string, opts *Options) (*Logger, error) {
	if opts == nil {
		opts = &Options{Console: true}
	}
	dir := opts.Dir
	if dir == "" {
		dir = defaultLogDir
	}
	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	l.SetLevel(parseLevel(level))

	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid log name %q", name)
	}
	logFile := filepath.Join(filepath.Clean(dir), name+".log")
	if err := os.MkdirAll(filepath.Dir(logFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileWriter, err := NewAsyncFileWriter(logFile, defaultBufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize async log writer: %w", err)
	}
	l.SetOutput(fileWriter)

	if opts.Console {
		l.AddHook(NewConsoleHook(os.Stdout))
	}

	return &Logger{Logger: l, file: fileWriter}, nil
}

// Close flushes buffered entries to disk.
func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

type ConsoleHook struct {
	out io.Writer
}

func NewConsoleHook(out io.Writer) *ConsoleHook {
	return &ConsoleHook{out: out}
}

func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

func (h *ConsoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
