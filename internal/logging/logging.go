package logging

import (
	"log"
	"os"
	"strings"
	"sync"
)

// Level ログレベル
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var (
	mu       sync.RWMutex
	minLevel = LevelInfo
	logger   = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

// ParseLevel LOG_LEVELの値を解析（未知の値はINFO）
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel 出力する最小レベルを設定
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput 出力先のロガーを差し替える（テスト用）
func SetOutput(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func Debugf(format string, args ...any) {
	logf(LevelDebug, "[DEBUG] ", format, args...)
}

func Infof(format string, args ...any) {
	logf(LevelInfo, "[INFO] ", format, args...)
}

func Errorf(format string, args ...any) {
	logf(LevelError, "[ERROR] ", format, args...)
}

func logf(level Level, prefix, format string, args ...any) {
	mu.RLock()
	l, enabled := logger, level >= minLevel
	mu.RUnlock()
	if !enabled {
		return
	}
	l.Printf(prefix+format, args...)
}
