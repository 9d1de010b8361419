package bottest

import (
	"log/slog"
	"math/rand/v2"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"botharness/pkg/dispatch"
)

// Defaults of the synthetic bot account.
const (
	DefaultToken       = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"
	DefaultBotID       = int64(123456)
	DefaultBotUsername = "test_bot"
	DefaultBotName     = "Test Bot"
)

// SetupFunc registers the application's handlers, middleware and modules.
// It runs exactly once, before any delivery.
type SetupFunc func(bot *tgbotapi.BotAPI, dispatcher *dispatch.Dispatcher) error

type config struct {
	token        string
	botID        int64
	botUsername  string
	botFirstName string
	dispatcher   *dispatch.Dispatcher
	setup        SetupFunc
	logger       *slog.Logger
	clock        func() time.Time
	randSource   rand.Source
	registerer   prometheus.Registerer
}

// Option customizes a Client or Transport.
type Option func(*config)

func defaultConfig() config {
	return config{
		token:        DefaultToken,
		botID:        DefaultBotID,
		botUsername:  DefaultBotUsername,
		botFirstName: DefaultBotName,
		logger:       slog.Default(),
		clock:        time.Now,
	}
}

func newConfig(options []Option) config {
	cfg := defaultConfig()
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}

	return cfg
}

// botUser returns the synthetic bot identity answered by getMe.
func (c config) botUser() tgbotapi.User {
	return tgbotapi.User{
		ID:        c.botID,
		IsBot:     true,
		FirstName: c.botFirstName,
		UserName:  c.botUsername,
	}
}

// WithToken sets the bot token. Empty tokens are ignored.
func WithToken(token string) Option {
	return func(cfg *config) {
		if token != "" {
			cfg.token = token
		}
	}
}

// WithBotIdentity sets the synthetic bot account. Zero values keep defaults.
func WithBotIdentity(id int64, username, firstName string) Option {
	return func(cfg *config) {
		if id != 0 {
			cfg.botID = id
		}
		if username != "" {
			cfg.botUsername = username
		}
		if firstName != "" {
			cfg.botFirstName = firstName
		}
	}
}

// WithConfig applies environment configuration loaded with LoadConfig.
func WithConfig(loaded Config) Option {
	return func(cfg *config) {
		WithToken(loaded.Token)(cfg)
		WithBotIdentity(loaded.BotID, loaded.BotUsername, loaded.BotName)(cfg)
	}
}

// WithDispatcher uses an existing dispatcher instead of a fresh one.
func WithDispatcher(dispatcher *dispatch.Dispatcher) Option {
	return func(cfg *config) {
		if dispatcher != nil {
			cfg.dispatcher = dispatcher
		}
	}
}

// WithSetup sets the callback that registers the application.
func WithSetup(setup SetupFunc) Option {
	return func(cfg *config) {
		if setup != nil {
			cfg.setup = setup
		}
	}
}

// WithLogger sets the logger of the client, its transport and the default
// dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithClock sets the time source for message dates and call timestamps.
func WithClock(clock func() time.Time) Option {
	return func(cfg *config) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithRandSource makes random dice values reproducible.
func WithRandSource(source rand.Source) Option {
	return func(cfg *config) {
		if source != nil {
			cfg.randSource = source
		}
	}
}

// WithRegisterer registers the client metrics on registerer instead of a
// private registry.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(cfg *config) {
		if registerer != nil {
			cfg.registerer = registerer
		}
	}
}
