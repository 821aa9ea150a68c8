// Package logger собирает slog.Logger по настройкам логирования
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iudanet/gophsync/internal/config"
)

// Форматы вывода
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// New создает логгер. При заданном cfg.File вывод идет в файл с ротацией,
// иначе в out. Формат auto выбирает текст для терминала и JSON для остального.
// Возвращаемый io.Closer закрывает файл логов.
func New(cfg config.LogConfig, out io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out = file
		closer = file
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format := resolveFormat(cfg.Format, out); format {
	case FormatText:
		handler = slog.NewTextHandler(out, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", format)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel разбирает уровень логирования; пустая строка означает info
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func resolveFormat(format string, out io.Writer) string {
	format = strings.ToLower(format)
	if format != "" && format != FormatAuto {
		return format
	}
	if isTerminal(out) {
		return FormatText
	}
	return FormatJSON
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
