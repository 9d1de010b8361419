package dispatch

import (
	"log/slog"
	"time"
)

const (
	defaultHookTimeout     = 5 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// config stores resolved dispatcher settings after option application.
type config struct {
	hookTimeout     time.Duration
	shutdownTimeout time.Duration
	storage         Storage
	logger          *slog.Logger
}

// Option mutates dispatcher construction configuration.
type Option func(*config)

// defaultConfig returns defaults suitable for both production polling and tests.
func defaultConfig() config {
	return config{
		hookTimeout:     defaultHookTimeout,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          slog.Default(),
	}
}

// WithHookTimeout configures the per-hook timeout of startup and shutdown hooks.
func WithHookTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.hookTimeout = timeout
		}
	}
}

// WithShutdownTimeout configures the overall shutdown window.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.shutdownTimeout = timeout
		}
	}
}

// WithStorage configures conversation state storage. Defaults to MemoryStorage.
func WithStorage(storage Storage) Option {
	return func(cfg *config) {
		if storage != nil {
			cfg.storage = storage
		}
	}
}

// WithLogger configures the logger used for routing and lifecycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
