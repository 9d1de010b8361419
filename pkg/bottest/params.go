package bottest

import (
	"encoding/json"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Params is the typed view of a captured call's parameters. The concrete type
// is fixed by the call kind:
//
//	CallSendMessage                       MessageParams
//	CallEditMessageText                   EditTextParams
//	CallEditMessageMarkup                 EditMarkupParams
//	CallDeleteMessage                     DeleteParams
//	CallForwardMessage, CallCopyMessage   ForwardParams
//	single media kinds                    MediaParams
//	CallSendMediaGroup                    MediaGroupParams
//	CallSendDice                          DiceParams
//	CallSendLocation                      LocationParams
//	CallSendContact                       ContactParams
//	CallSendPoll                          PollParams
//	CallSendChatAction                    ChatActionParams
//	CallAnswerCallback                    CallbackAnswerParams
//	CallAnswerInlineQuery                 InlineAnswerParams
//	CallGetChat                           ChatParams
//	chat member kinds                     ChatMemberParams
//	CallGetMe                             GetMeParams
//	CallGetMyCommands, CallSetMyCommands  CommandsParams
//	CallOther                             OtherParams
type Params interface {
	Kind() CallKind
}

// ChatRef addresses a chat either by numeric id or by @username.
type ChatRef struct {
	ID       int64
	Username string
}

// MessageParams carries sendMessage parameters.
type MessageParams struct {
	Chat                ChatRef
	Text                string
	ParseMode           string
	ReplyToMessageID    int
	DisableNotification bool
	ReplyMarkup         *tgbotapi.InlineKeyboardMarkup
}

func (MessageParams) Kind() CallKind { return CallSendMessage }

// EditTextParams carries editMessageText parameters.
type EditTextParams struct {
	Chat            ChatRef
	MessageID       int
	InlineMessageID string
	Text            string
	ParseMode       string
	ReplyMarkup     *tgbotapi.InlineKeyboardMarkup
}

func (EditTextParams) Kind() CallKind { return CallEditMessageText }

// EditMarkupParams carries editMessageReplyMarkup parameters.
type EditMarkupParams struct {
	Chat            ChatRef
	MessageID       int
	InlineMessageID string
	ReplyMarkup     *tgbotapi.InlineKeyboardMarkup
}

func (EditMarkupParams) Kind() CallKind { return CallEditMessageMarkup }

// DeleteParams carries deleteMessage parameters.
type DeleteParams struct {
	Chat      ChatRef
	MessageID int
}

func (DeleteParams) Kind() CallKind { return CallDeleteMessage }

// ForwardParams carries forwardMessage and copyMessage parameters.
type ForwardParams struct {
	kind      CallKind
	Chat      ChatRef
	FromChat  ChatRef
	MessageID int
	Caption   string
}

func (p ForwardParams) Kind() CallKind { return p.kind }

// MediaParams carries single-file media parameters. File holds the file id,
// URL or uploaded file name.
type MediaParams struct {
	kind        CallKind
	Chat        ChatRef
	File        string
	Caption     string
	ParseMode   string
	ReplyMarkup *tgbotapi.InlineKeyboardMarkup
}

func (p MediaParams) Kind() CallKind { return p.kind }

// MediaItem is one entry of a media group.
type MediaItem struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// MediaGroupParams carries sendMediaGroup parameters.
type MediaGroupParams struct {
	Chat  ChatRef
	Media []MediaItem
}

func (MediaGroupParams) Kind() CallKind { return CallSendMediaGroup }

// DiceParams carries sendDice parameters. Emoji is empty when the bot left
// the default die.
type DiceParams struct {
	Chat  ChatRef
	Emoji string
}

func (DiceParams) Kind() CallKind { return CallSendDice }

// LocationParams carries sendLocation parameters.
type LocationParams struct {
	Chat      ChatRef
	Latitude  float64
	Longitude float64
}

func (LocationParams) Kind() CallKind { return CallSendLocation }

// ContactParams carries sendContact parameters.
type ContactParams struct {
	Chat        ChatRef
	PhoneNumber string
	FirstName   string
	LastName    string
}

func (ContactParams) Kind() CallKind { return CallSendContact }

// PollParams carries sendPoll parameters.
type PollParams struct {
	Chat        ChatRef
	Question    string
	Options     []string
	IsAnonymous bool
}

func (PollParams) Kind() CallKind { return CallSendPoll }

// ChatActionParams carries sendChatAction parameters.
type ChatActionParams struct {
	Chat   ChatRef
	Action string
}

func (ChatActionParams) Kind() CallKind { return CallSendChatAction }

// CallbackAnswerParams carries answerCallbackQuery parameters.
type CallbackAnswerParams struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
	URL             string
	CacheTime       int
}

func (CallbackAnswerParams) Kind() CallKind { return CallAnswerCallback }

// InlineAnswerParams carries answerInlineQuery parameters. Results is the raw
// JSON result list.
type InlineAnswerParams struct {
	InlineQueryID string
	Results       json.RawMessage
}

func (InlineAnswerParams) Kind() CallKind { return CallAnswerInlineQuery }

// ChatParams carries getChat parameters.
type ChatParams struct {
	Chat ChatRef
}

func (ChatParams) Kind() CallKind { return CallGetChat }

// ChatMemberParams carries getChatMember, banChatMember, unbanChatMember and
// restrictChatMember parameters.
type ChatMemberParams struct {
	kind   CallKind
	Chat   ChatRef
	UserID int64
}

func (p ChatMemberParams) Kind() CallKind { return p.kind }

// GetMeParams is the empty parameter set of getMe.
type GetMeParams struct{}

func (GetMeParams) Kind() CallKind { return CallGetMe }

// CommandsParams carries getMyCommands and setMyCommands parameters.
type CommandsParams struct {
	kind         CallKind
	Commands     []tgbotapi.BotCommand
	LanguageCode string
}

func (p CommandsParams) Kind() CallKind { return p.kind }

// OtherParams keeps the raw fields of an unmodelled method.
type OtherParams struct {
	Method string
	Fields map[string]string
}

func (OtherParams) Kind() CallKind { return CallOther }

// decodeParams builds the typed view of fields for kind. Malformed values
// decode to zero values; the raw fields stay available on the call.
func decodeParams(kind CallKind, method string, fields map[string]string) Params {
	form := formFields(fields)
	chat := form.chatRef("chat_id")

	switch kind {
	case CallSendMessage:
		return MessageParams{
			Chat:                chat,
			Text:                fields["text"],
			ParseMode:           fields["parse_mode"],
			ReplyToMessageID:    form.parseInt("reply_to_message_id"),
			DisableNotification: form.parseBool("disable_notification"),
			ReplyMarkup:         form.markup(),
		}
	case CallEditMessageText:
		return EditTextParams{
			Chat:            chat,
			MessageID:       form.parseInt("message_id"),
			InlineMessageID: fields["inline_message_id"],
			Text:            fields["text"],
			ParseMode:       fields["parse_mode"],
			ReplyMarkup:     form.markup(),
		}
	case CallEditMessageMarkup:
		return EditMarkupParams{
			Chat:            chat,
			MessageID:       form.parseInt("message_id"),
			InlineMessageID: fields["inline_message_id"],
			ReplyMarkup:     form.markup(),
		}
	case CallDeleteMessage:
		return DeleteParams{Chat: chat, MessageID: form.parseInt("message_id")}
	case CallForwardMessage, CallCopyMessage:
		return ForwardParams{
			kind:      kind,
			Chat:      chat,
			FromChat:  form.chatRef("from_chat_id"),
			MessageID: form.parseInt("message_id"),
			Caption:   fields["caption"],
		}
	case CallSendPhoto, CallSendVideo, CallSendAudio, CallSendDocument, CallSendSticker,
		CallSendAnimation, CallSendVoice, CallSendVideoNote:
		return MediaParams{
			kind:        kind,
			Chat:        chat,
			File:        fields[kind.mediaField()],
			Caption:     fields["caption"],
			ParseMode:   fields["parse_mode"],
			ReplyMarkup: form.markup(),
		}
	case CallSendMediaGroup:
		params := MediaGroupParams{Chat: chat}
		form.decodeJSON("media", &params.Media)
		return params
	case CallSendDice:
		return DiceParams{Chat: chat, Emoji: fields["emoji"]}
	case CallSendLocation:
		return LocationParams{
			Chat:      chat,
			Latitude:  form.parseFloat("latitude"),
			Longitude: form.parseFloat("longitude"),
		}
	case CallSendContact:
		return ContactParams{
			Chat:        chat,
			PhoneNumber: fields["phone_number"],
			FirstName:   fields["first_name"],
			LastName:    fields["last_name"],
		}
	case CallSendPoll:
		params := PollParams{
			Chat:        chat,
			Question:    fields["question"],
			IsAnonymous: form.parseBool("is_anonymous"),
		}
		form.decodeJSON("options", &params.Options)
		return params
	case CallSendChatAction:
		return ChatActionParams{Chat: chat, Action: fields["action"]}
	case CallAnswerCallback:
		return CallbackAnswerParams{
			CallbackQueryID: fields["callback_query_id"],
			Text:            fields["text"],
			ShowAlert:       form.parseBool("show_alert"),
			URL:             fields["url"],
			CacheTime:       form.parseInt("cache_time"),
		}
	case CallAnswerInlineQuery:
		return InlineAnswerParams{
			InlineQueryID: fields["inline_query_id"],
			Results:       json.RawMessage(fields["results"]),
		}
	case CallGetChat:
		return ChatParams{Chat: chat}
	case CallGetChatMember, CallBanChatMember, CallUnbanChatMember, CallRestrictChatMember:
		return ChatMemberParams{kind: kind, Chat: chat, UserID: form.parseInt64("user_id")}
	case CallGetMe:
		return GetMeParams{}
	case CallGetMyCommands, CallSetMyCommands:
		params := CommandsParams{kind: kind, LanguageCode: fields["language_code"]}
		form.decodeJSON("commands", &params.Commands)
		return params
	default:
		return OtherParams{Method: method, Fields: fields}
	}
}

// formFields reads typed values out of submitted form fields.
type formFields map[string]string

func (f formFields) parseInt64(key string) int64 {
	value, err := strconv.ParseInt(f[key], 10, 64)
	if err != nil {
		return 0
	}

	return value
}

func (f formFields) parseInt(key string) int {
	return int(f.parseInt64(key))
}

func (f formFields) parseFloat(key string) float64 {
	value, err := strconv.ParseFloat(f[key], 64)
	if err != nil {
		return 0
	}

	return value
}

func (f formFields) parseBool(key string) bool {
	value, err := strconv.ParseBool(f[key])
	if err != nil {
		return false
	}

	return value
}

// chatRef reads a chat id that may be numeric or an @username.
func (f formFields) chatRef(key string) ChatRef {
	raw, ok := f[key]
	if !ok || raw == "" {
		return ChatRef{}
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ChatRef{ID: id}
	}

	return ChatRef{Username: raw}
}

// decodeJSON decodes a JSON-encoded field into target, leaving it untouched on error.
func (f formFields) decodeJSON(key string, target any) {
	raw, ok := f[key]
	if !ok || raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), target)
}

// markup decodes the reply_markup field when it is an inline keyboard.
func (f formFields) markup() *tgbotapi.InlineKeyboardMarkup {
	raw, ok := f["reply_markup"]
	if !ok || raw == "" {
		return nil
	}

	var markup tgbotapi.InlineKeyboardMarkup
	if err := json.Unmarshal([]byte(raw), &markup); err != nil || markup.InlineKeyboard == nil {
		return nil
	}

	return &markup
}
