package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

func init() {
	Init(os.Getenv("ENVIRONMENT"))
}

// Init rebuilds the process logger. development gets a console encoder with debug level,
// everything else gets JSON at info level.
func Init(environment string) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	Set(l)
}

// Set replaces the process logger; tests use it with zaptest or zap.NewNop.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

// L returns the structured logger for components that log with fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-1))
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Info(format string, v ...interface{}) {
	s().Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	s().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	s().Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	s().Warnf(format, v...)
}

func Sync() {
	_ = s().Sync()
}

// Fatal logs and exits the process. Only main uses it.
func Fatal(format string, v ...interface{}) {
	s().Fatalf(format, v...)
}
