// Package utils содержит файловый key/value логгер и хелперы для разбора ответов LLM.
//
// Логгер пишет в bellhop-YYYY-MM-DD-HH-MM.log в заданной директории.
// Thread-safe через sync.Mutex. До InitLogger вызовы Info/Debug/... ничего не делают.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level — уровень логирования.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String возвращает имя уровня так, как оно пишется в лог.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel разбирает уровень из конфигурации. Пустая строка и неизвестные значения дают info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	logOut   io.Writer
	logFile  *os.File
	logMutex sync.Mutex
	minLevel = LevelInfo
)

// InitLogger создаёт (или открывает) лог-файл в директории dir.
//
// Пустой dir означает текущую директорию. Повторный вызов ничего не делает.
func InitLogger(dir string, level Level) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logOut != nil {
		return nil
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("bellhop-%s.log", time.Now().Format("2006-01-02-15-04")))
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	logOut = f
	minLevel = level

	// Пишем напрямую: мьютекс уже захвачен
	writeLine(LevelInfo, "Logger initialized", "file", filename, "level", level)
	return nil
}

// SetOutput направляет лог в произвольный writer (тесты, stderr).
func SetOutput(w io.Writer, level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logOut = w
	minLevel = level
}

// Info - информационное сообщение.
func Info(msg string, keyvals ...any) {
	log(LevelInfo, msg, keyvals...)
}

// Error - сообщение об ошибке.
func Error(msg string, keyvals ...any) {
	log(LevelError, msg, keyvals...)
}

// Debug - отладочное сообщение.
func Debug(msg string, keyvals ...any) {
	log(LevelDebug, msg, keyvals...)
}

// Warn - предупреждение.
func Warn(msg string, keyvals ...any) {
	log(LevelWarn, msg, keyvals...)
}

func log(level Level, msg string, keyvals ...any) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logOut == nil || level < minLevel {
		return
	}
	writeLine(level, msg, keyvals...)
}

// writeLine пишет строку формата
// [YYYY-MM-DD HH:MM:SS] LEVEL: message key1=value1 key2=value2
//
// Вызывается под logMutex.
func writeLine(level Level, msg string, keyvals ...any) {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString("] ")
	b.WriteString(level.String())
	b.WriteString(": ")
	b.WriteString(msg)

	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	b.WriteString("\n")

	if _, err := io.WriteString(logOut, b.String()); err != nil {
		// Fallback: файл недоступен
		fmt.Fprint(os.Stderr, b.String())
		fmt.Fprintf(os.Stderr, "[LOGGER ERROR: write failed: %v]\n", err)
		return
	}

	if logFile != nil {
		if err := logFile.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Sync failed: %v]\n", err)
		}
	}
}

// Close закрывает лог-файл.
//
// Вызывается через defer в main().
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Close failed: %v]\n", err)
		}
	}
	logFile = nil
	logOut = nil
}
