package dispatch

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateKind identifies which payload of an update is routed.
type UpdateKind string

const (
	// UpdateMessage routes Update.Message.
	UpdateMessage UpdateKind = "message"
	// UpdateCallbackQuery routes Update.CallbackQuery.
	UpdateCallbackQuery UpdateKind = "callback_query"
)

// Request is the per-update context handed to filters, middleware and handlers.
type Request struct {
	// Bot is the client handlers use for outbound calls.
	Bot *tgbotapi.BotAPI
	// Update is the inbound update being handled.
	Update tgbotapi.Update

	kind     UpdateKind
	state    State
	fsm      *StateContext
	services *ServiceRegistry
	logger   *slog.Logger
}

// Kind returns the routed payload kind.
func (r *Request) Kind() UpdateKind {
	return r.kind
}

// Message returns the inbound message, or nil for other update kinds.
func (r *Request) Message() *tgbotapi.Message {
	return r.Update.Message
}

// Callback returns the inbound callback query, or nil for other update kinds.
func (r *Request) Callback() *tgbotapi.CallbackQuery {
	return r.Update.CallbackQuery
}

// Sender returns the user who produced the update.
func (r *Request) Sender() *tgbotapi.User {
	switch r.kind {
	case UpdateMessage:
		return r.Update.Message.From
	case UpdateCallbackQuery:
		return r.Update.CallbackQuery.From
	default:
		return nil
	}
}

// ChatID returns the chat the update belongs to. Callback queries without a
// message fall back to the sender's private chat.
func (r *Request) ChatID() int64 {
	return routingKey(r.Update).ChatID
}

// Text returns the message text, or the callback data for callback queries.
func (r *Request) Text() string {
	switch r.kind {
	case UpdateMessage:
		return r.Update.Message.Text
	case UpdateCallbackQuery:
		return r.Update.CallbackQuery.Data
	default:
		return ""
	}
}

// CurrentState returns the conversation state loaded before routing.
func (r *Request) CurrentState() State {
	return r.state
}

// State returns the conversation state accessor of this update.
func (r *Request) State() *StateContext {
	return r.fsm
}

// Services returns the dispatcher service registry.
func (r *Request) Services() *ServiceRegistry {
	return r.services
}

// Logger returns a logger annotated with the update id.
func (r *Request) Logger() *slog.Logger {
	return r.logger
}

// Send sends any chattable through the request bot.
func (r *Request) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	message, err := r.Bot.Send(chattable)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("send: %w", err)
	}

	return message, nil
}

// answerConfig collects AnswerOption values.
type answerConfig struct {
	message tgbotapi.MessageConfig
	reply   bool
}

// AnswerOption customizes a message sent with Answer.
type AnswerOption func(*answerConfig)

// WithReplyMarkup attaches an inline keyboard to the answer.
func WithReplyMarkup(markup tgbotapi.InlineKeyboardMarkup) AnswerOption {
	return func(config *answerConfig) {
		config.message.ReplyMarkup = markup
	}
}

// AsReply makes the answer quote the inbound message.
func AsReply() AnswerOption {
	return func(config *answerConfig) {
		config.reply = true
	}
}

// WithParseMode sets the parse mode of the answer text.
func WithParseMode(mode string) AnswerOption {
	return func(config *answerConfig) {
		config.message.ParseMode = mode
	}
}

// Answer sends text to the chat of the update.
func (r *Request) Answer(text string, options ...AnswerOption) (tgbotapi.Message, error) {
	config := answerConfig{message: tgbotapi.NewMessage(r.ChatID(), text)}
	for _, option := range options {
		option(&config)
	}
	if config.reply && r.Update.Message != nil {
		config.message.ReplyToMessageID = r.Update.Message.MessageID
	}

	message, err := r.Bot.Send(config.message)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("answer: %w", err)
	}

	return message, nil
}

// EditText replaces the text of the message a callback query was attached to.
// A nil markup omits reply_markup from the request.
func (r *Request) EditText(text string, markup *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	query := r.Update.CallbackQuery
	if query == nil || query.Message == nil || query.Message.Chat == nil {
		return tgbotapi.Message{}, fmt.Errorf("edit text: %w", ErrNoCallbackMessage)
	}

	config := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	config.ReplyMarkup = markup

	message, err := r.Bot.Send(config)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("edit text: %w", err)
	}

	return message, nil
}

// AnswerCallback acknowledges the callback query, optionally with a toast text.
func (r *Request) AnswerCallback(text string) error {
	query := r.Update.CallbackQuery
	if query == nil {
		return fmt.Errorf("answer callback: %w", ErrUnsupportedUpdate)
	}
	if _, err := r.Bot.Request(tgbotapi.NewCallback(query.ID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}

	return nil
}
