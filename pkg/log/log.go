package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/logging"
)

type Level int

const (
	LevelDebug    Level = iota // only interesting while working on the code
	LevelInfo                  // progress of a run
	LevelWarn                  // a frame or scene was skipped
	LevelError                 // a scene failed
	LevelCritical              // the whole run is unusable
)

// Log is the leveled logger used by every package in scenereel
type Log interface {
	Close() // Give logger a chance to flush
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Warnf(format string, a ...interface{})
	Errorf(format string, a ...interface{})
	Criticalf(format string, a ...interface{})
}

type Logger struct {
	Output   io.Writer
	MinLevel Level
	GCP      *logging.Logger
	Client   *logging.Client

	lock sync.Mutex // Scene workers may log concurrently
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(p))
	return len(p), nil
}

// NewLog creates a logger that writes to stdout, or to Google Cloud Logging
// if GCP_PROJECT_ID and GCP_LOGNAME are set.
func NewLog() (Log, error) {
	l := &Logger{
		MinLevel: LevelInfo,
	}
	if os.Getenv("SCENEREEL_DEBUG") != "" {
		l.MinLevel = LevelDebug
	}
	gcpProjectID := os.Getenv("GCP_PROJECT_ID")
	gcpLogname := os.Getenv("GCP_LOGNAME")
	if gcpProjectID != "" && gcpLogname != "" {
		fmt.Printf("Logging to GCP %v / %v (you won't see further logs on stdout)\n", gcpProjectID, gcpLogname)
		client, err := logging.NewClient(context.Background(), gcpProjectID)
		if err != nil {
			return nil, fmt.Errorf("Failed to create GCP logging client: %w", err)
		}
		l.Client = client
		l.GCP = client.Logger(gcpLogname)
	} else {
		l.Output = os.Stdout
	}
	return l, nil
}

// NewWriterLog creates a logger that writes plain text lines to w
func NewWriterLog(w io.Writer, minLevel Level) Log {
	return &Logger{
		Output:   w,
		MinLevel: minLevel,
	}
}

// NewTestingLog routes all log output through t.Log
func NewTestingLog(t *testing.T) Log {
	return &Logger{
		Output:   &testLogWriter{t: t},
		MinLevel: LevelDebug,
	}
}

func levelToGCP(level Level) logging.Severity {
	switch level {
	case LevelDebug:
		return logging.Debug
	case LevelInfo:
		return logging.Info
	case LevelWarn:
		return logging.Warning
	case LevelError:
		return logging.Error
	case LevelCritical:
		return logging.Critical
	}
	panic("Unknown log level")
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarn:
		return "Warning"
	case LevelError:
		return "Error"
	case LevelCritical:
		return "Critical"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

func (l *Logger) write(level Level, format string, a ...interface{}) {
	if level < l.MinLevel {
		return
	}
	if l.GCP != nil {
		l.GCP.Log(logging.Entry{
			Severity: levelToGCP(level),
			Payload:  fmt.Sprintf(format, a...),
		})
		return
	}
	prefix := fmt.Sprintf("%.3f %v ", float64(time.Now().UnixNano())/1e9, level)
	l.lock.Lock()
	fmt.Fprintf(l.Output, prefix+format+"\n", a...)
	l.lock.Unlock()
}

func (l *Logger) Close() {
	if l.GCP != nil {
		l.GCP.Flush()
		l.Client.Close()
	}
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	l.write(LevelDebug, format, a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	l.write(LevelInfo, format, a...)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	l.write(LevelWarn, format, a...)
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	l.write(LevelError, format, a...)
}

func (l *Logger) Criticalf(format string, a ...interface{}) {
	l.write(LevelCritical, format, a...)
}
