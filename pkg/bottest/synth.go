package bottest

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Placeholder file identifiers stamped on synthesized media.
const (
	placeholderFileID   = "test"
	placeholderFileSize = 100
)

// synthesizeLocked builds the result the real backend would return for call.
// Callers hold t.mu.
func (t *Transport) synthesizeLocked(call CapturedCall) any {
	switch params := call.Params.(type) {
	case MessageParams:
		message := t.botMessage(params.Chat)
		message.Text = params.Text
		message.ReplyMarkup = params.ReplyMarkup
		return message
	case EditTextParams:
		if params.InlineMessageID != "" {
			return true
		}
		message := t.botMessage(params.Chat)
		message.Text = params.Text
		message.ReplyMarkup = params.ReplyMarkup
		return message
	case EditMarkupParams:
		if params.InlineMessageID != "" {
			return true
		}
		message := t.botMessage(params.Chat)
		message.ReplyMarkup = params.ReplyMarkup
		return message
	case DeleteParams, CallbackAnswerParams:
		return true
	case DiceParams:
		emoji := params.Emoji
		if emoji == "" {
			emoji = DiceEmojiDie
		}
		message := t.botMessage(params.Chat)
		message.Dice = &tgbotapi.Dice{Emoji: emoji, Value: t.nextDiceLocked(emoji)}
		return message
	case MediaParams:
		message := t.botMessage(params.Chat)
		message.Caption = params.Caption
		message.ReplyMarkup = params.ReplyMarkup
		attachMedia(message, params.Kind())
		return message
	case MediaGroupParams:
		messages := make([]tgbotapi.Message, 0, len(params.Media))
		for _, item := range params.Media {
			message := t.botMessage(params.Chat)
			message.Caption = item.Caption
			attachMedia(message, mediaGroupKind(item.Type))
			messages = append(messages, *message)
		}
		return messages
	case ForwardParams:
		if params.Kind() == CallCopyMessage {
			return &tgbotapi.MessageID{MessageID: t.nextResponseID()}
		}
		return t.botMessage(params.Chat)
	case LocationParams:
		message := t.botMessage(params.Chat)
		message.Location = &tgbotapi.Location{Latitude: params.Latitude, Longitude: params.Longitude}
		return message
	case ContactParams:
		message := t.botMessage(params.Chat)
		message.Contact = &tgbotapi.Contact{
			PhoneNumber: params.PhoneNumber,
			FirstName:   params.FirstName,
			LastName:    params.LastName,
		}
		return message
	case PollParams:
		message := t.botMessage(params.Chat)
		options := make([]tgbotapi.PollOption, 0, len(params.Options))
		for _, option := range params.Options {
			options = append(options, tgbotapi.PollOption{Text: option})
		}
		message.Poll = &tgbotapi.Poll{
			ID:          strconv.Itoa(message.MessageID),
			Question:    params.Question,
			Options:     options,
			IsAnonymous: params.IsAnonymous,
			Type:        "regular",
		}
		return message
	case ChatMemberParams:
		if params.Kind() != CallGetChatMember {
			return true
		}
		userID := params.UserID
		if userID == 0 {
			userID = 1
		}
		return &tgbotapi.ChatMember{
			User:   &tgbotapi.User{ID: userID, FirstName: "TestUser"},
			Status: "member",
		}
	case ChatParams:
		return &tgbotapi.Chat{ID: params.Chat.ID, Type: chatTypePrivate, UserName: params.Chat.Username}
	case GetMeParams:
		bot := t.bot
		return &bot
	case CommandsParams:
		if params.Kind() == CallSetMyCommands {
			t.commands = append([]tgbotapi.BotCommand(nil), params.Commands...)
			return true
		}
		return append(make([]tgbotapi.BotCommand, 0, len(t.commands)), t.commands...)
	default:
		return true
	}
}

// botMessage builds a message sent by the bot into chat with a fresh
// response id.
func (t *Transport) botMessage(chat ChatRef) *tgbotapi.Message {
	bot := t.bot

	return &tgbotapi.Message{
		MessageID: t.nextResponseID(),
		From:      &bot,
		Date:      int(t.clock().Unix()),
		Chat:      &tgbotapi.Chat{ID: chat.ID, Type: chatTypePrivate, UserName: chat.Username},
	}
}

func (t *Transport) nextResponseID() int {
	return int(t.responseID.Next())
}

// nextDiceLocked pops the dice queue or rolls within the emoji's range.
func (t *Transport) nextDiceLocked(emoji string) int {
	if len(t.dice) > 0 {
		value := t.dice[0]
		t.dice = t.dice[1:]
		return value
	}

	return t.rnd.rollDice(emoji)
}

// attachMedia stamps a placeholder payload of kind onto message.
func attachMedia(message *tgbotapi.Message, kind CallKind) {
	switch kind {
	case CallSendPhoto:
		message.Photo = []tgbotapi.PhotoSize{{
			FileID:       placeholderFileID,
			FileUniqueID: placeholderFileID,
			Width:        placeholderFileSize,
			Height:       placeholderFileSize,
		}}
	case CallSendVideo:
		message.Video = &tgbotapi.Video{FileID: placeholderFileID, FileUniqueID: placeholderFileID}
	case CallSendAudio:
		message.Audio = &tgbotapi.Audio{FileID: placeholderFileID, FileUniqueID: placeholderFileID}
	case CallSendDocument:
		message.Document = &tgbotapi.Document{FileID: placeholderFileID, FileUniqueID: placeholderFileID}
	case CallSendSticker:
		message.Sticker = &tgbotapi.Sticker{FileID: placeholderFileID, FileUniqueID: placeholderFileID}
	case CallSendAnimation:
		message.Animation = &tgbotapi.Animation{FileID: placeholderFileID, FileUniqueID: placeholderFileID}
	case CallSendVoice:
		message.Voice = &tgbotapi.Voice{FileID: placeholderFileID, FileUniqueID: placeholderFileID}
	case CallSendVideoNote:
		message.VideoNote = &tgbotapi.VideoNote{FileID: placeholderFileID, FileUniqueID: placeholderFileID}
	}
}

// mediaGroupKind maps an input media type to the matching single-media kind.
func mediaGroupKind(mediaType string) CallKind {
	switch mediaType {
	case "photo":
		return CallSendPhoto
	case "video":
		return CallSendVideo
	case "audio":
		return CallSendAudio
	case "document":
		return CallSendDocument
	default:
		return CallOther
	}
}
