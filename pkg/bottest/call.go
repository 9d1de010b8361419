package bottest

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CapturedCall records one outbound Bot API call. Calls are never mutated
// after they are recorded.
type CapturedCall struct {
	// Kind classifies Method.
	Kind CallKind
	// Method is the wire name as called.
	Method string
	// Params is the typed view of Fields for Kind.
	Params Params
	// Fields holds the parameters exactly as submitted.
	Fields map[string]string
	// Timestamp is when the transport intercepted the call.
	Timestamp time.Time
	// Response is the synthesized result, a *tgbotapi.Message for
	// message-shaped kinds and true for acknowledgements.
	Response any
}

// ChatID returns the numeric chat_id parameter.
func (c CapturedCall) ChatID() (int64, bool) {
	raw, ok := c.Fields["chat_id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// Text returns the text parameter, or the caption for media calls.
func (c CapturedCall) Text() string {
	if text, ok := c.Fields["text"]; ok {
		return text
	}

	return c.Fields["caption"]
}

// MessageID returns the message_id parameter.
func (c CapturedCall) MessageID() (int, bool) {
	raw, ok := c.Fields["message_id"]
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}

	return id, true
}

// ReplyMarkup returns the inline keyboard sent with the call, if any.
func (c CapturedCall) ReplyMarkup() *tgbotapi.InlineKeyboardMarkup {
	return formFields(c.Fields).markup()
}

// Message returns the synthesized response message for message-shaped kinds.
func (c CapturedCall) Message() (*tgbotapi.Message, bool) {
	message, ok := c.Response.(*tgbotapi.Message)
	return message, ok
}

// DiceValue returns the value rolled by a sendDice call.
func (c CapturedCall) DiceValue() (int, bool) {
	message, ok := c.Message()
	if !ok || message.Dice == nil {
		return 0, false
	}

	return message.Dice.Value, true
}

// String renders the call for test failure output.
func (c CapturedCall) String() string {
	text := c.Text()
	if len(text) > 50 {
		text = text[:50] + "..."
	}
	if text == "" {
		return fmt.Sprintf("%s(chat_id=%s)", c.Method, c.Fields["chat_id"])
	}

	return fmt.Sprintf("%s(chat_id=%s, text=%q)", c.Method, c.Fields["chat_id"], text)
}
