package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = newLogger(zapcore.AddSync(os.Stdout), "text")

	// file is the open log file when output is a path; closed on reconfigure.
	file *os.File
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel converts a case-insensitive level name. ok is false for unknown names.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.SetLevel(l.zap())
	}
}

// Configure rebuilds the logger.
//
// format is "text" (console encoder) or "json". output is "stdout", "stderr"
// or a file path, opened in append mode.
func Configure(levelName, format, output string) error {
	var (
		sink    zapcore.WriteSyncer
		newFile *os.File
	)
	switch strings.ToLower(output) {
	case "", "stdout":
		sink = zapcore.AddSync(os.Stdout)
	case "stderr":
		sink = zapcore.AddSync(os.Stderr)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", output, err)
		}
		sink = zapcore.AddSync(f)
		newFile = f
	}

	SetLevel(levelName)

	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	logger = newLogger(sink, format)

	previous := file
	file = newFile
	if previous != nil {
		if err := previous.Close(); err != nil {
			return fmt.Errorf("failed to close previous log file: %w", err)
		}
	}
	return nil
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Sync()
}

func newLogger(sink zapcore.WriteSyncer, format string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(format, "json") {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	return zap.New(zapcore.NewCore(encoder, sink, level))
}

func log(l Level, format string, v ...any) {
	if !level.Enabled(l.zap()) {
		return
	}

	mu.RLock()
	defer mu.RUnlock()
	if ce := logger.Check(l.zap(), fmt.Sprintf(format, v...)); ce != nil {
		ce.Write()
	}
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
