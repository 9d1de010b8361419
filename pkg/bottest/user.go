package bottest

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// User is a simulated user: one identity and one chat bound to a client.
// Queries only see calls addressed to the bound chat.
type User struct {
	client   *Client
	identity *tgbotapi.User
	chat     *tgbotapi.Chat
}

// NewUser binds a fresh identity and its private chat to c.
func (c *Client) NewUser(options ...UserOption) *User {
	identity := c.factory.User(options...)

	return &User{client: c, identity: identity, chat: c.factory.PrivateChatFor(identity)}
}

// UserInChat binds an existing identity and chat, such as a group, to c.
func (c *Client) UserInChat(identity *tgbotapi.User, chat *tgbotapi.Chat) *User {
	return &User{client: c, identity: identity, chat: chat}
}

// Bind moves the user to client, keeping identity and chat. Bind must not
// race with other methods of the user.
func (u *User) Bind(client *Client) {
	u.client = client
}

// Client returns the bound client.
func (u *User) Client() *Client {
	return u.client
}

// Identity returns the user's account.
func (u *User) Identity() *tgbotapi.User {
	return u.identity
}

// Chat returns the bound chat.
func (u *User) Chat() *tgbotapi.Chat {
	return u.chat
}

// SendText delivers text in the bound chat.
func (u *User) SendText(ctx context.Context, text string, options ...MessageOption) ([]CapturedCall, error) {
	return u.client.SendMessage(ctx, text, u.identity, u.inChat(options)...)
}

// SendCommand delivers a command in the bound chat.
func (u *User) SendCommand(ctx context.Context, command, args string, options ...MessageOption) ([]CapturedCall, error) {
	return u.client.SendCommand(ctx, command, args, u.identity, u.inChat(options)...)
}

// ClickButton presses a button carrying data. Without OnMessage the pressed
// message is a placeholder in the bound chat.
func (u *User) ClickButton(ctx context.Context, data string, options ...CallbackOption) ([]CapturedCall, error) {
	options = append([]CallbackOption{CallbackInChat(u.chat)}, options...)
	return u.client.SendCallback(ctx, data, u.identity, options...)
}

// SendDice throws a dice in the bound chat. RandomDiceValue draws the value;
// other out-of-range values fail with ErrInvalidArgument.
func (u *User) SendDice(ctx context.Context, emoji string, value int, options ...MessageOption) ([]CapturedCall, error) {
	return u.client.SendDice(ctx, emoji, value, u.identity, u.inChat(options)...)
}

// SentMessages returns messages the bot sent to the bound chat.
func (u *User) SentMessages() []CapturedCall {
	return u.client.store.SentMessages(OnlyChat(u.chat.ID))
}

// LastMessage returns the latest message the bot sent to the bound chat.
func (u *User) LastMessage() (CapturedCall, bool) {
	return u.client.store.LastMessage(OnlyChat(u.chat.ID))
}

// ReceivedTextContaining reports whether any message sent to the bound chat
// contains substr.
func (u *User) ReceivedTextContaining(substr string) bool {
	return u.client.store.ContainsText(substr, OnlyChat(u.chat.ID))
}

func (u *User) inChat(options []MessageOption) []MessageOption {
	return append([]MessageOption{InChat(u.chat)}, options...)
}
