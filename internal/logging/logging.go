// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       false,
		FilePath:   filepath.Join(home, ".config", "papertrader", "logs", "papertrader.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// File writer with rotation
	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithComponent adds a component name to the logger context.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogTradeOpened logs a trade execution event.
func LogTradeOpened(logger zerolog.Logger, tradeID, symbol, side string, quantity, price, fees float64) {
	logger.Info().
		Str("event", "trade_opened").
		Str("trade_id", tradeID).
		Str("symbol", symbol).
		Str("side", side).
		Float64("quantity", quantity).
		Float64("price", price).
		Float64("fees", fees).
		Msg("Trade executed")
}

// LogTradeClosed logs a trade close event.
func LogTradeClosed(logger zerolog.Logger, tradeID, symbol, reason string, closePrice, realizedPnL, fees float64) {
	logger.Info().
		Str("event", "trade_closed").
		Str("trade_id", tradeID).
		Str("symbol", symbol).
		Str("reason", reason).
		Float64("close_price", closePrice).
		Float64("realized_pnl", realizedPnL).
		Float64("fees", fees).
		Msg("Trade closed")
}

// LogSignal logs a close signal decision.
func LogSignal(logger zerolog.Logger, tradeID, source string, shouldClose bool, confidence float64, reasoning string) {
	logger.Debug().
		Str("event", "close_signal").
		Str("trade_id", tradeID).
		Str("source", source).
		Bool("should_close", shouldClose).
		Float64("confidence", confidence).
		Str("reasoning", reasoning).
		Msg("Close signal generated")
}

// LogSweep logs the outcome of an auto-close sweep.
func LogSweep(logger zerolog.Logger, openCount, closedCount int, duration time.Duration) {
	logger.Info().
		Str("event", "sweep").
		Int("open_positions", openCount).
		Int("auto_closed", closedCount).
		Dur("duration", duration).
		Msg("Sweep completed")
}
