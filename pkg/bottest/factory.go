package bottest

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Defaults stamped on synthesized entities.
const (
	DefaultChatInstance = "test_instance"
	DefaultGroupTitle   = "Test Group"
	PlaceholderText     = "Button message"
	PlaceholderBotID    = int64(123456)
	PlaceholderBotName  = "TestBot"
)

const (
	defaultUserFirstName = "Test"
	defaultUserLastName  = "User"
	defaultUserLanguage  = "en"
	defaultHandlePattern = "test_user_%d"
	botCommandEntityType = "bot_command"
	chatTypePrivate      = "private"
	chatTypeGroup        = "group"
	chatTypeChannel      = "channel"
)

// Factory builds well-formed inbound entities. Identifiers that are not given
// explicitly come from the factory's Sequencer.
type Factory struct {
	seq   *Sequencer
	clock func() time.Time
	rnd   *randomizer
}

// NewFactory creates a factory. A nil seq gets a fresh Sequencer, a nil clock
// uses time.Now and a nil source uses the global random generator.
func NewFactory(seq *Sequencer, clock func() time.Time, source rand.Source) *Factory {
	return newFactory(seq, clock, newRandomizer(source))
}

// newFactory builds a factory drawing random values from rnd, which may be
// shared with a transport.
func newFactory(seq *Sequencer, clock func() time.Time, rnd *randomizer) *Factory {
	if seq == nil {
		seq = NewSequencer()
	}
	if clock == nil {
		clock = time.Now
	}

	return &Factory{seq: seq, clock: clock, rnd: rnd}
}

// Sequencer returns the identifier counters of the factory.
func (f *Factory) Sequencer() *Sequencer {
	return f.seq
}

// Reset restores every identifier counter to its base.
func (f *Factory) Reset() {
	f.seq.Reset()
}

type userConfig struct {
	id        int64
	firstName string
	lastName  string
	handle    string
	language  string
	isBot     bool
}

// UserOption customizes a user built by Factory.User.
type UserOption func(*userConfig)

// WithUserID fixes the user id instead of drawing one from the sequencer.
func WithUserID(id int64) UserOption {
	return func(cfg *userConfig) {
		cfg.id = id
	}
}

// WithNames sets first and last name. An empty last name is kept empty.
func WithNames(firstName, lastName string) UserOption {
	return func(cfg *userConfig) {
		cfg.firstName = firstName
		cfg.lastName = lastName
	}
}

// WithHandle sets the username without the leading @.
func WithHandle(handle string) UserOption {
	return func(cfg *userConfig) {
		cfg.handle = handle
	}
}

// WithLanguage sets the IETF language tag.
func WithLanguage(language string) UserOption {
	return func(cfg *userConfig) {
		cfg.language = language
	}
}

// AsBot marks the user as a bot account.
func AsBot() UserOption {
	return func(cfg *userConfig) {
		cfg.isBot = true
	}
}

// User builds an identity. The handle defaults to test_user_<id>.
func (f *Factory) User(options ...UserOption) *tgbotapi.User {
	cfg := userConfig{
		firstName: defaultUserFirstName,
		lastName:  defaultUserLastName,
		language:  defaultUserLanguage,
	}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.id == 0 {
		cfg.id = f.seq.Users.Next()
	}
	if cfg.handle == "" {
		cfg.handle = defaultHandle(cfg.id)
	}

	return &tgbotapi.User{
		ID:           cfg.id,
		IsBot:        cfg.isBot,
		FirstName:    cfg.firstName,
		LastName:     cfg.lastName,
		UserName:     cfg.handle,
		LanguageCode: cfg.language,
	}
}

func defaultHandle(id int64) string {
	return fmt.Sprintf(defaultHandlePattern, id)
}

// PrivateChat builds a private chat. The handle defaults to test_user_<id>.
func (f *Factory) PrivateChat(id int64, firstName, lastName, handle string) *tgbotapi.Chat {
	if handle == "" {
		handle = defaultHandle(id)
	}

	return &tgbotapi.Chat{
		ID:        id,
		Type:      chatTypePrivate,
		FirstName: firstName,
		LastName:  lastName,
		UserName:  handle,
	}
}

// PrivateChatFor derives the private chat of user. It shares the user's id,
// names and handle.
func (f *Factory) PrivateChatFor(user *tgbotapi.User) *tgbotapi.Chat {
	return f.PrivateChat(user.ID, user.FirstName, user.LastName, user.UserName)
}

// GroupChat builds a group chat. The title defaults to "Test Group".
func (f *Factory) GroupChat(id int64, title string) *tgbotapi.Chat {
	if title == "" {
		title = DefaultGroupTitle
	}

	return &tgbotapi.Chat{ID: id, Type: chatTypeGroup, Title: title}
}

// ChannelChat builds a channel, the origin of channel forwards.
func (f *Factory) ChannelChat(id int64, title string) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: chatTypeChannel, Title: title}
}

type messageConfig struct {
	chat      *tgbotapi.Chat
	messageID int
	sentAt    time.Time
	replyTo   *tgbotapi.Message
	keyboard  *tgbotapi.InlineKeyboardMarkup
	entities  []tgbotapi.MessageEntity
}

// MessageOption customizes a message built by Factory.
type MessageOption func(*messageConfig)

// InChat places the message in chat instead of the sender's private chat.
func InChat(chat *tgbotapi.Chat) MessageOption {
	return func(cfg *messageConfig) {
		cfg.chat = chat
	}
}

// WithMessageID fixes the message id instead of drawing one from the sequencer.
func WithMessageID(id int) MessageOption {
	return func(cfg *messageConfig) {
		cfg.messageID = id
	}
}

// SentAt fixes the message date.
func SentAt(at time.Time) MessageOption {
	return func(cfg *messageConfig) {
		cfg.sentAt = at
	}
}

// ReplyingTo makes the message a reply to target.
func ReplyingTo(target *tgbotapi.Message) MessageOption {
	return func(cfg *messageConfig) {
		cfg.replyTo = target
	}
}

// WithKeyboard attaches an inline keyboard.
func WithKeyboard(keyboard tgbotapi.InlineKeyboardMarkup) MessageOption {
	return func(cfg *messageConfig) {
		cfg.keyboard = &keyboard
	}
}

// WithEntities sets the message entities. Command messages keep their
// bot_command entity in front.
func WithEntities(entities ...tgbotapi.MessageEntity) MessageOption {
	return func(cfg *messageConfig) {
		cfg.entities = append(cfg.entities, entities...)
	}
}

// baseMessage builds the common message skeleton shared by all variants.
func (f *Factory) baseMessage(from *tgbotapi.User, options []MessageOption) *tgbotapi.Message {
	cfg := messageConfig{}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.messageID == 0 {
		cfg.messageID = int(f.seq.Messages.Next())
	}
	if cfg.chat == nil {
		cfg.chat = f.PrivateChatFor(from)
	}
	if cfg.sentAt.IsZero() {
		cfg.sentAt = f.clock()
	}

	return &tgbotapi.Message{
		MessageID:      cfg.messageID,
		From:           from,
		Date:           int(cfg.sentAt.Unix()),
		Chat:           cfg.chat,
		ReplyToMessage: cfg.replyTo,
		ReplyMarkup:    cfg.keyboard,
		Entities:       cfg.entities,
	}
}

// Message builds a text message from from. Without InChat the message lands
// in the sender's private chat.
func (f *Factory) Message(text string, from *tgbotapi.User, options ...MessageOption) *tgbotapi.Message {
	message := f.baseMessage(from, options)
	message.Text = text

	return message
}

// Command builds "/<command>[ <args>]" with a leading bot_command entity.
func (f *Factory) Command(command, args string, from *tgbotapi.User, options ...MessageOption) *tgbotapi.Message {
	text := "/" + command
	if args != "" {
		text += " " + args
	}

	message := f.Message(text, from, options...)
	entity := tgbotapi.MessageEntity{
		Type:   botCommandEntityType,
		Offset: 0,
		Length: utf16Len("/" + command),
	}
	message.Entities = append([]tgbotapi.MessageEntity{entity}, message.Entities...)

	return message
}

// utf16Len counts UTF-16 code units, the unit of entity offsets.
func utf16Len(text string) int {
	length := 0
	for _, r := range text {
		if r >= 0x10000 {
			length += 2
			continue
		}
		length++
	}

	return length
}

// Dice builds a dice message. An empty emoji means 🎲. A value of
// RandomDiceValue is drawn from the emoji's range; any other value outside
// the range, negative ones included, fails with ErrInvalidArgument.
func (f *Factory) Dice(emoji string, value int, from *tgbotapi.User, options ...MessageOption) (*tgbotapi.Message, error) {
	if emoji == "" {
		emoji = DiceEmojiDie
	}
	if value == RandomDiceValue {
		value = f.rnd.rollDice(emoji)
	} else if err := ValidateDiceValue(emoji, value); err != nil {
		return nil, fmt.Errorf("build dice: %w", err)
	}

	message := f.baseMessage(from, options)
	message.Dice = &tgbotapi.Dice{Emoji: emoji, Value: value}

	return message, nil
}

// ForwardedFromUser builds a message forwarded from origin's account.
func (f *Factory) ForwardedFromUser(text string, from, origin *tgbotapi.User, options ...MessageOption) *tgbotapi.Message {
	message := f.Message(text, from, options...)
	message.ForwardFrom = origin
	message.ForwardDate = message.Date

	return message
}

// ForwardedFromHiddenUser builds a message forwarded from a user who hides
// their account; only the display name survives.
func (f *Factory) ForwardedFromHiddenUser(text string, from *tgbotapi.User, senderName string, options ...MessageOption) *tgbotapi.Message {
	message := f.Message(text, from, options...)
	message.ForwardSenderName = senderName
	message.ForwardDate = message.Date

	return message
}

// ForwardedFromChat builds a message forwarded from an anonymous admin of chat.
func (f *Factory) ForwardedFromChat(text string, from *tgbotapi.User, chat *tgbotapi.Chat, signature string, options ...MessageOption) *tgbotapi.Message {
	message := f.Message(text, from, options...)
	message.ForwardFromChat = chat
	message.ForwardSignature = signature
	message.ForwardDate = message.Date

	return message
}

// ForwardedFromChannel builds a message forwarded from post originMessageID
// of channel.
func (f *Factory) ForwardedFromChannel(
	text string,
	from *tgbotapi.User,
	channel *tgbotapi.Chat,
	originMessageID int,
	signature string,
	options ...MessageOption,
) *tgbotapi.Message {
	message := f.Message(text, from, options...)
	message.ForwardFromChat = channel
	message.ForwardFromMessageID = originMessageID
	message.ForwardSignature = signature
	message.ForwardDate = message.Date

	return message
}

type callbackConfig struct {
	id           string
	message      *tgbotapi.Message
	chat         *tgbotapi.Chat
	chatInstance string
}

// CallbackOption customizes a callback query built by Factory.
type CallbackOption func(*callbackConfig)

// OnMessage attaches the query to message, the one carrying the pressed button.
func OnMessage(message *tgbotapi.Message) CallbackOption {
	return func(cfg *callbackConfig) {
		cfg.message = message
	}
}

// CallbackInChat places the synthesized placeholder message in chat.
func CallbackInChat(chat *tgbotapi.Chat) CallbackOption {
	return func(cfg *callbackConfig) {
		cfg.chat = chat
	}
}

// WithCallbackID fixes the query id instead of drawing one from the sequencer.
func WithCallbackID(id string) CallbackOption {
	return func(cfg *callbackConfig) {
		cfg.id = id
	}
}

// WithChatInstance overrides the chat instance token.
func WithChatInstance(instance string) CallbackOption {
	return func(cfg *callbackConfig) {
		cfg.chatInstance = instance
	}
}

// CallbackQuery builds a button press by from. Without OnMessage a
// placeholder bot message is synthesized in the sender's private chat.
func (f *Factory) CallbackQuery(data string, from *tgbotapi.User, options ...CallbackOption) *tgbotapi.CallbackQuery {
	cfg := callbackConfig{chatInstance: DefaultChatInstance}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.id == "" {
		cfg.id = strconv.FormatInt(f.seq.Callbacks.Next(), 10)
	}
	if cfg.message == nil {
		chat := cfg.chat
		if chat == nil {
			chat = f.PrivateChat(from.ID, from.FirstName, defaultUserLastName, "")
		}
		bot := &tgbotapi.User{ID: PlaceholderBotID, IsBot: true, FirstName: PlaceholderBotName}
		cfg.message = f.Message(PlaceholderText, bot, InChat(chat))
	}

	return &tgbotapi.CallbackQuery{
		ID:           cfg.id,
		From:         from,
		Message:      cfg.message,
		ChatInstance: cfg.chatInstance,
		Data:         data,
	}
}

// MessageUpdate wraps message in an update with a fresh update id.
func (f *Factory) MessageUpdate(message *tgbotapi.Message) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: int(f.seq.Updates.Next()), Message: message}
}

// CallbackUpdate wraps query in an update with a fresh update id.
func (f *Factory) CallbackUpdate(query *tgbotapi.CallbackQuery) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: int(f.seq.Updates.Next()), CallbackQuery: query}
}

// TextUpdate builds a text message and wraps it.
func (f *Factory) TextUpdate(text string, from *tgbotapi.User, options ...MessageOption) tgbotapi.Update {
	return f.MessageUpdate(f.Message(text, from, options...))
}

// CommandUpdate builds a command message and wraps it.
func (f *Factory) CommandUpdate(command, args string, from *tgbotapi.User, options ...MessageOption) tgbotapi.Update {
	return f.MessageUpdate(f.Command(command, args, from, options...))
}

// DiceUpdate builds a dice message and wraps it.
func (f *Factory) DiceUpdate(emoji string, value int, from *tgbotapi.User, options ...MessageOption) (tgbotapi.Update, error) {
	message, err := f.Dice(emoji, value, from, options...)
	if err != nil {
		return tgbotapi.Update{}, err
	}

	return f.MessageUpdate(message), nil
}

// CallbackDataUpdate builds a callback query and wraps it.
func (f *Factory) CallbackDataUpdate(data string, from *tgbotapi.User, options ...CallbackOption) tgbotapi.Update {
	return f.CallbackUpdate(f.CallbackQuery(data, from, options...))
}

// Button is one inline keyboard button: a label and its callback data.
type Button struct {
	Text string
	Data string
}

// InlineKeyboard builds a keyboard with the row and column structure of rows.
// Zero rows yield an empty, non-nil keyboard.
func InlineKeyboard(rows ...[]Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		keyboard = append(keyboard, buttons)
	}

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
