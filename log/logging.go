// Package log is the levelled logger shared by the connection core, the
// commands and the probe command. It is backed by logrus.
package log

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	ERROR LogLevel = iota
	WARN
	INFO
	DEBUG
	TRACE
)

// Logger is the logrus instance every helper in this package writes to.
var Logger = logrus.New()

var MaxLogLevel LogLevel = INFO

func init() {
	Logger.SetLevel(logrus.InfoLevel)
}

// SetLogLevel sets MaxLogLevel based on the provided string
func SetLogLevel(level string) (ok bool) {
	switch strings.ToUpper(level) {
	case "ERROR":
		MaxLogLevel = ERROR
	case "WARN":
		MaxLogLevel = WARN
	case "INFO":
		MaxLogLevel = INFO
	case "DEBUG":
		MaxLogLevel = DEBUG
	case "TRACE":
		MaxLogLevel = TRACE
	default:
		LogError("Unknown log level requested: %v", level)
		return false
	}
	Logger.SetLevel(logrusLevel(MaxLogLevel))
	return true
}

// SetOutput redirects all log output, e.g. to a log file.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

func logrusLevel(l LogLevel) logrus.Level {
	switch l {
	case ERROR:
		return logrus.ErrorLevel
	case WARN:
		return logrus.WarnLevel
	case INFO:
		return logrus.InfoLevel
	case DEBUG:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// WithConn returns an entry tagged with the connection ID so that every
// line produced for one SMTP session can be correlated.
func WithConn(id string) *logrus.Entry {
	return Logger.WithField("conn_id", id)
}

// Error logs a message to the 'standard' Logger (always)
func LogError(msg string, args ...interface{}) {
	Logger.Errorf(msg, args...)
}

// Warn logs a message to the 'standard' Logger if MaxLogLevel is >= WARN
func LogWarn(msg string, args ...interface{}) {
	if MaxLogLevel >= WARN {
		Logger.Warnf(msg, args...)
	}
}

// Info logs a message to the 'standard' Logger if MaxLogLevel is >= INFO
func LogInfo(msg string, args ...interface{}) {
	if MaxLogLevel >= INFO {
		Logger.Infof(msg, args...)
	}
}

// Trace logs a message to the 'standard' Logger if MaxLogLevel is >= TRACE
func LogTrace(msg string, args ...interface{}) {
	if MaxLogLevel >= TRACE {
		Logger.Tracef(msg, args...)
	}
}
