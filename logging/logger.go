package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/mama165/sdk-go/logs"
)

type Options struct {
	Level         string
	Path          string
	RotationHours int
	MaxAgeDays    int
}

// New builds the process logger. Without a path it defers to the shared sdk
// logger on stdout; with a path it also writes JSON records to a daily
// rotated file. The returned closer is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Path == "" {
		return logs.GetLoggerFromString(opts.Level), nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Path, 0o750); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	rotation := opts.RotationHours
	if rotation <= 0 {
		rotation = 24
	}
	maxAge := opts.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	fileName := filepath.Join(opts.Path, "chat.log")
	writer, err := rotatelogs.New(
		fileName+".%Y%m%d",
		rotatelogs.WithLinkName(fileName),
		rotatelogs.WithRotationTime(time.Duration(rotation)*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open rotating log: %w", err)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, writer), &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	})
	return slog.New(handler), writer, nil
}

// ParseLevel falls back to INFO on anything it does not recognise.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(level)))); err != nil {
		return slog.LevelInfo
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
