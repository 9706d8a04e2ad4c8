package log

import (
	stdlog "log"
	"os"
)

// Logger is the diagnostic channel used by pollmux. Replace it with
// SetLogger to route warnings and fatal construction errors into the host
// application's logging stack.
type Logger interface {
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
}

var logger Logger = &stdLogger{stdlog.New(os.Stderr, "[pollmux] ", stdlog.LstdFlags)}

// SetLogger replaces the package logger.
func SetLogger(l Logger) {
	if l != nil {
		logger = l
	}
}

func Info(args ...interface{})  { logger.Info(args...) }
func Warn(args ...interface{})  { logger.Warn(args...) }
func Error(args ...interface{}) { logger.Error(args...) }

// Fatal reports an unrecoverable condition. The default logger panics with
// the diagnostic so the failure is attributable; hosts that prefer to
// terminate differently can install their own Logger.
func Fatal(args ...interface{}) { logger.Fatal(args...) }

type stdLogger struct {
	l *stdlog.Logger
}

func (s *stdLogger) Info(args ...interface{})  { s.l.Println(args...) }
func (s *stdLogger) Warn(args ...interface{})  { s.l.Println(args...) }
func (s *stdLogger) Error(args ...interface{}) { s.l.Println(args...) }
func (s *stdLogger) Fatal(args ...interface{}) { s.l.Panicln(args...) }
