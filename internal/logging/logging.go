// Package logging holds slog helpers shared by the harness binaries.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseLevel maps a configured level name to a slog level. An empty name is
// info.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}

// BotAPILogger adapts a slog.Logger to the package logger of the Bot API
// library. Library output is logged at debug level.
type BotAPILogger struct {
	Logger *slog.Logger
}

// Println implements tgbotapi.BotLogger.
func (l *BotAPILogger) Println(v ...interface{}) {
	l.Logger.Debug(strings.TrimSpace(fmt.Sprintln(v...)), "component", "tgbotapi")
}

// Printf implements tgbotapi.BotLogger.
func (l *BotAPILogger) Printf(format string, v ...interface{}) {
	l.Logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "tgbotapi")
}

// InstallBotAPILogger routes the Bot API library's package logger to logger.
func InstallBotAPILogger(logger *slog.Logger) error {
	if logger == nil {
		return fmt.Errorf("install bot api logger: nil logger")
	}
	if err := tgbotapi.SetLogger(&BotAPILogger{Logger: logger}); err != nil {
		return fmt.Errorf("install bot api logger: %w", err)
	}

	return nil
}
