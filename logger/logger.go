package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewLogger will create a new logger implementation.
// Text output is used when stderr is a terminal, otherwise records are written as JSON so they can be shipped
// as-is by a log collector.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	log.SetLevel(logLevel)
	l := &LoggerImpl{
		Logger:         log.WithField("service", serviceName),
		Service:        serviceName,
		LogLevelStr:    logLevel.String(),
		PrintStackDump: stackDumpOnPanic,
	}
	l.SetOutput(os.Stderr)
	l.SetJSONFormat(!isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()))
	return l
}

// WithField returns a copy of the logger that adds key=value to every entry.
func (l *LoggerImpl) WithField(key string, value interface{}) *LoggerImpl {
	return &LoggerImpl{
		Logger:         l.Logger.WithField(key, value),
		Service:        l.Service,
		LogLevelStr:    l.LogLevelStr,
		PrintStackDump: l.PrintStackDump,
	}
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace when PrintStackDump is set or in trace mode).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.PrintStackDump || l.LogLevelStr == "trace" {
		l.withStackTrace().Error(message...)
		return
	}
	l.Logger.Error(message...)
}

// Panic logs message and panics with a stack trace if PrintStackDump is set.
// Otherwise it logs and exits via Fatal.
func (l *LoggerImpl) Panic(message ...interface{}) {
	switch {
	case l.PrintStackDump && l.verbose():
		l.withStackTrace().Panic(message...)
	case l.PrintStackDump:
		l.Logger.Panic(message...)
	default:
		l.Logger.Fatal(message...)
	}
}

// Fatal causes exit(1) without a stack dump unless the level is debug or trace.
// Call Panic() to get a stack dump instead.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.verbose() {
		l.withStackTrace().Fatal(message...)
		return
	}
	l.Logger.Fatal(message...)
}

func (l *LoggerImpl) verbose() bool {
	return l.LogLevelStr == "debug" || l.LogLevelStr == "trace"
}

func (l *LoggerImpl) withStackTrace() *log.Entry {
	return l.Logger.WithField("stackTrace", string(debug.Stack()))
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	log.SetOutput(writer)
}

// SetJSONFormat switches the shared logrus formatter between JSON and text.
func (l *LoggerImpl) SetJSONFormat(useJSON bool) {
	if useJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
