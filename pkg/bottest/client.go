package bottest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botharness/pkg/dispatch"
)

// Client is a test session: a bot double wired to the in-memory transport,
// the capture store, an entity factory and the dispatcher under test.
type Client struct {
	store      *Store
	transport  *Transport
	bot        *tgbotapi.BotAPI
	factory    *Factory
	dispatcher *dispatch.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger

	deliverMu sync.Mutex

	lifecycleMu sync.Mutex
	opened      bool
	closed      bool
}

// New assembles a session and runs the setup callback once. It does not
// emit startup; call Open, Run or Start for that.
func New(options ...Option) (*Client, error) {
	cfg := newConfig(options)

	metrics, err := NewMetrics(cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	// One randomizer serves both sides, so a seeded source is never drawn
	// from concurrently.
	rnd := newRandomizer(cfg.randSource)
	store := NewStore()
	transport := newTransport(store, cfg, rnd, nil)
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.token, tgbotapi.APIEndpoint, transport)
	if err != nil {
		return nil, fmt.Errorf("new client: create bot: %w", err)
	}
	// The bot double calls getMe while constructing; tests start from an empty log.
	store.Clear()
	transport.ResetMessageCounter()
	transport.metrics = metrics

	dispatcher := cfg.dispatcher
	if dispatcher == nil {
		dispatcher = dispatch.New(dispatch.WithLogger(cfg.logger))
	}

	client := &Client{
		store:      store,
		transport:  transport,
		bot:        bot,
		factory:    newFactory(NewSequencer(), cfg.clock, rnd),
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     cfg.logger,
	}

	if cfg.setup != nil {
		if err := cfg.setup(bot, dispatcher); err != nil {
			return nil, fmt.Errorf("new client: setup: %w", err)
		}
	}

	return client, nil
}

// Start builds a client, opens it and closes it when the test ends.
func Start(t testing.TB, options ...Option) *Client {
	t.Helper()

	client, err := New(options...)
	if err != nil {
		t.Fatalf("bottest start: %v", err)
	}
	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("bottest start: %v", err)
	}
	t.Cleanup(func() {
		if err := client.Close(context.Background()); err != nil {
			t.Errorf("bottest close: %v", err)
		}
	})

	return client
}

// Bot returns the bot double handed to handlers.
func (c *Client) Bot() *tgbotapi.BotAPI {
	return c.bot
}

// Dispatcher returns the dispatcher under test.
func (c *Client) Dispatcher() *dispatch.Dispatcher {
	return c.dispatcher
}

// Store returns the capture store.
func (c *Client) Store() *Store {
	return c.store
}

// Transport returns the substitute transport.
func (c *Client) Transport() *Transport {
	return c.transport
}

// Factory returns the entity factory.
func (c *Client) Factory() *Factory {
	return c.factory
}

// Metrics returns the client metrics.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Open emits the dispatcher startup hooks.
func (c *Client) Open(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	switch {
	case c.closed:
		return fmt.Errorf("open: %w", ErrClosed)
	case c.opened:
		return fmt.Errorf("open: %w", ErrAlreadyOpen)
	}
	if err := c.dispatcher.EmitStartup(ctx, c.bot); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	c.opened = true

	return nil
}

// Close emits the dispatcher shutdown hooks once if the client was opened.
// It waits for a delivery in progress. Later calls are no-ops.
func (c *Client) Close(ctx context.Context) error {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if !c.opened {
		return nil
	}
	if err := c.dispatcher.EmitShutdown(ctx, c.bot); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// Run opens the client, runs fn and closes the client on every exit path,
// including a panic in fn, which is re-raised after shutdown.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context, client *Client) error) (err error) {
	if err := c.Open(ctx); err != nil {
		return err
	}
	defer func() {
		recovered := recover()
		closeErr := c.Close(ctx)
		if recovered != nil {
			if closeErr != nil {
				c.logger.ErrorContext(ctx, "bottest close after panic failed", "error", closeErr)
			}
			panic(recovered)
		}
		err = errors.Join(err, closeErr)
	}()

	return fn(ctx, c)
}

func (c *Client) isClosed() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	return c.closed
}

// Deliver feeds update to the dispatcher and returns the calls recorded
// during that delivery, in order. Handler errors are returned unchanged.
// Deliveries on one client never overlap.
func (c *Client) Deliver(ctx context.Context, update tgbotapi.Update) ([]CapturedCall, error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	if c.isClosed() {
		return nil, fmt.Errorf("deliver update %d: %w", update.UpdateID, ErrClosed)
	}

	start := time.Now()
	before := c.store.Len()
	err := c.dispatcher.FeedUpdate(ctx, c.bot, update)
	calls := c.store.Since(before)
	c.metrics.observeDelivery(start, err)
	if err != nil {
		c.logger.WarnContext(ctx, "bottest delivery failed",
			"update_id", update.UpdateID,
			"calls", len(calls),
			"error", err,
		)
	}

	return calls, err
}

// SendMessage delivers a text message from from. A nil from is replaced by a
// fresh user.
func (c *Client) SendMessage(ctx context.Context, text string, from *tgbotapi.User, options ...MessageOption) ([]CapturedCall, error) {
	return c.Deliver(ctx, c.factory.TextUpdate(text, c.sender(from), options...))
}

// SendCommand delivers "/<command>[ <args>]" from from.
func (c *Client) SendCommand(ctx context.Context, command, args string, from *tgbotapi.User, options ...MessageOption) ([]CapturedCall, error) {
	return c.Deliver(ctx, c.factory.CommandUpdate(command, args, c.sender(from), options...))
}

// SendCallback delivers a button press carrying data from from.
func (c *Client) SendCallback(ctx context.Context, data string, from *tgbotapi.User, options ...CallbackOption) ([]CapturedCall, error) {
	return c.Deliver(ctx, c.factory.CallbackDataUpdate(data, c.sender(from), options...))
}

// SendDice delivers a dice thrown by from. An empty emoji means 🎲 and
// RandomDiceValue draws a value from the emoji's range; any other value
// outside the range fails with ErrInvalidArgument before delivery.
func (c *Client) SendDice(ctx context.Context, emoji string, value int, from *tgbotapi.User, options ...MessageOption) ([]CapturedCall, error) {
	update, err := c.factory.DiceUpdate(emoji, value, c.sender(from), options...)
	if err != nil {
		return nil, fmt.Errorf("send dice: %w", err)
	}

	return c.Deliver(ctx, update)
}

func (c *Client) sender(from *tgbotapi.User) *tgbotapi.User {
	if from != nil {
		return from
	}

	return c.factory.User()
}

// Reset clears the capture store, restarts response ids, empties the dice
// queue and resets every identifier counter. Handlers and conversation state
// are kept.
func (c *Client) Reset() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.store.Clear()
	c.transport.Reset()
	c.factory.Reset()
}

// ClearCapture clears the capture store only. Queued dice values survive.
func (c *Client) ClearCapture() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.store.Clear()
}
