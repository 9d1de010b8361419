package bottest

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransportBot(t *testing.T, options ...Option) (*Transport, *tgbotapi.BotAPI) {
	t.Helper()

	options = append([]Option{WithClock(fixedClock), WithRandSource(rand.NewPCG(1, 2))}, options...)
	transport := NewTransport(NewStore(), options...)
	bot, err := tgbotapi.NewBotAPIWithClient(DefaultToken, tgbotapi.APIEndpoint, transport)
	require.NoError(t, err)
	transport.Store().Clear()
	transport.ResetMessageCounter()

	return transport, bot
}

func TestTransportGetMe(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t, WithBotIdentity(777, "echo_bot", "Echo"))
	assert.Equal(t, "echo_bot", bot.Self.UserName)
	assert.Equal(t, int64(777), bot.Self.ID)
	assert.True(t, bot.Self.IsBot)

	self, err := bot.GetMe()
	require.NoError(t, err)
	assert.Equal(t, "Echo", self.FirstName)

	call, ok := transport.Store().LastCall()
	require.True(t, ok)
	assert.Equal(t, CallGetMe, call.Kind)
	assert.IsType(t, GetMeParams{}, call.Params)
}

func TestTransportSendMessage(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t)
	config := tgbotapi.NewMessage(42, "Hello")
	config.ReplyMarkup = InlineKeyboard([]Button{{Text: "Go", Data: "go"}})

	first, err := bot.Send(config)
	require.NoError(t, err)
	second, err := bot.Send(tgbotapi.NewMessage(42, "Again"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.MessageID)
	assert.Equal(t, 2, second.MessageID)
	assert.Equal(t, "Hello", first.Text)
	assert.Equal(t, int64(42), first.Chat.ID)
	assert.Equal(t, DefaultBotID, first.From.ID)
	assert.Equal(t, int(fixedNow.Unix()), first.Date)
	require.NotNil(t, first.ReplyMarkup)
	assert.Equal(t, "go", *first.ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	calls := transport.Store().All()
	require.Len(t, calls, 2)
	assert.Equal(t, "42", calls[0].Fields["chat_id"])
	assert.Equal(t, fixedNow, calls[0].Timestamp)
	params, ok := calls[0].Params.(MessageParams)
	require.True(t, ok)
	assert.Equal(t, int64(42), params.Chat.ID)
	require.NotNil(t, params.ReplyMarkup)

	response, ok := calls[0].Message()
	require.True(t, ok)
	assert.Equal(t, first.MessageID, response.MessageID)
}

func TestTransportEditsAndAcknowledgements(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t)

	edited, err := bot.Send(tgbotapi.NewEditMessageText(42, 9, "changed"))
	require.NoError(t, err)
	assert.Equal(t, "changed", edited.Text)

	markup, err := bot.Send(tgbotapi.NewEditMessageReplyMarkup(42, 9, InlineKeyboard([]Button{{Text: "A", Data: "a"}})))
	require.NoError(t, err)
	require.NotNil(t, markup.ReplyMarkup)

	inline := tgbotapi.EditMessageTextConfig{
		BaseEdit: tgbotapi.BaseEdit{InlineMessageID: "inline-1"},
		Text:     "inline text",
	}
	response, err := bot.Request(inline)
	require.NoError(t, err)
	assert.JSONEq(t, "true", string(response.Result))

	_, err = bot.Request(tgbotapi.NewDeleteMessage(42, 9))
	require.NoError(t, err)
	_, err = bot.Request(tgbotapi.NewCallback("cb-1", "done"))
	require.NoError(t, err)

	edits := transport.Store().EditedMessages(AnyChat())
	require.Len(t, edits, 2)
	assert.Equal(t, "inline-1", edits[1].Params.(EditTextParams).InlineMessageID)
	_, hasChat := edits[1].ChatID()
	assert.False(t, hasChat)

	answers := transport.Store().CallbackAnswers()
	require.Len(t, answers, 1)
	answer := answers[0].Params.(CallbackAnswerParams)
	assert.Equal(t, "cb-1", answer.CallbackQueryID)
	assert.Equal(t, "done", answer.Text)
	assert.Len(t, transport.Store().DeletedMessages(OnlyChat(42)), 1)
}

func TestTransportPhotoUpload(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t)
	photo := tgbotapi.NewPhoto(42, tgbotapi.FileBytes{Name: "cat.png", Bytes: []byte("not really a png")})
	photo.Caption = "a cat"

	message, err := bot.Send(photo)
	require.NoError(t, err)
	require.Len(t, message.Photo, 1)
	assert.Equal(t, "test", message.Photo[0].FileID)
	assert.Equal(t, "a cat", message.Caption)

	call, ok := transport.Store().LastCall()
	require.True(t, ok)
	assert.Equal(t, CallSendPhoto, call.Kind)
	assert.Equal(t, "cat.png", call.Params.(MediaParams).File)
	assert.Equal(t, "a cat", call.Text())
	chatID, ok := call.ChatID()
	require.True(t, ok)
	assert.Equal(t, int64(42), chatID)
}

func TestTransportMessageShapedKinds(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t)

	document, err := bot.Send(tgbotapi.NewDocument(42, tgbotapi.FileID("doc-id")))
	require.NoError(t, err)
	require.NotNil(t, document.Document)

	location, err := bot.Send(tgbotapi.NewLocation(42, 52.5, 13.4))
	require.NoError(t, err)
	require.NotNil(t, location.Location)
	assert.InDelta(t, 52.5, location.Location.Latitude, 1e-9)

	contact, err := bot.Send(tgbotapi.NewContact(42, "+100", "Ann"))
	require.NoError(t, err)
	require.NotNil(t, contact.Contact)
	assert.Equal(t, "+100", contact.Contact.PhoneNumber)

	poll, err := bot.Send(tgbotapi.NewPoll(42, "Tea?", "yes", "no"))
	require.NoError(t, err)
	require.NotNil(t, poll.Poll)
	require.Len(t, poll.Poll.Options, 2)
	assert.Equal(t, "no", poll.Poll.Options[1].Text)

	forwarded, err := bot.Send(tgbotapi.NewForward(42, 7, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(42), forwarded.Chat.ID)

	copied, err := bot.CopyMessage(tgbotapi.NewCopyMessage(42, 7, 3))
	require.NoError(t, err)
	assert.NotZero(t, copied.MessageID)

	group, err := bot.SendMediaGroup(tgbotapi.NewMediaGroup(42, []interface{}{
		tgbotapi.NewInputMediaPhoto(tgbotapi.FileID("p1")),
		tgbotapi.NewInputMediaPhoto(tgbotapi.FileID("p2")),
	}))
	require.NoError(t, err)
	require.Len(t, group, 2)
	assert.NotEqual(t, group[0].MessageID, group[1].MessageID)
	assert.Len(t, group[1].Photo, 1)

	_, err = bot.Request(tgbotapi.NewChatAction(42, tgbotapi.ChatTyping))
	require.NoError(t, err)

	forward := transport.Store().ByKind(CallForwardMessage)[0].Params.(ForwardParams)
	assert.Equal(t, int64(7), forward.FromChat.ID)
	assert.Equal(t, 3, forward.MessageID)

	media := transport.Store().ByKind(CallSendMediaGroup)[0].Params.(MediaGroupParams)
	require.Len(t, media.Media, 2)
	assert.Equal(t, "photo", media.Media[0].Type)
	assert.Equal(t, "typing", transport.Store().ByKind(CallSendChatAction)[0].Params.(ChatActionParams).Action)
}

func TestTransportChatMemberAndCommands(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t)

	member, err := bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: -100, UserID: 42},
	})
	require.NoError(t, err)
	require.NotNil(t, member.User)
	assert.Equal(t, int64(42), member.User.ID)
	assert.Equal(t, "member", member.Status)

	commands, err := bot.GetMyCommands()
	require.NoError(t, err)
	assert.Empty(t, commands)

	_, err = bot.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start"},
		tgbotapi.BotCommand{Command: "help", Description: "Help"},
	))
	require.NoError(t, err)

	commands, err = bot.GetMyCommands()
	require.NoError(t, err)
	require.Len(t, commands, 2)
	assert.Equal(t, "help", commands[1].Command)

	set := transport.Store().ByKind(CallSetMyCommands)[0].Params.(CommandsParams)
	assert.Len(t, set.Commands, 2)

	transport.Reset()
	commands, err = bot.GetMyCommands()
	require.NoError(t, err)
	assert.Empty(t, commands)
}

func TestTransportUnknownMethodIsOther(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t)
	response, err := bot.Request(tgbotapi.NewChatTitle(-100, "New title"))
	require.NoError(t, err)
	assert.True(t, response.Ok)

	call, ok := transport.Store().LastCall()
	require.True(t, ok)
	assert.Equal(t, CallOther, call.Kind)
	assert.Equal(t, "setChatTitle", call.Method)
	assert.Equal(t, "New title", call.Params.(OtherParams).Fields["title"])
}

func TestTransportDiceQueue(t *testing.T) {
	t.Parallel()

	transport, bot := newTransportBot(t)
	transport.SetNextDiceValue(3)
	transport.SetNextDiceValue(99)
	assert.Equal(t, []int{3, 99}, transport.PendingDiceValues())

	first, err := bot.Send(tgbotapi.NewDice(42))
	require.NoError(t, err)
	assert.Equal(t, DiceEmojiDie, first.Dice.Emoji)
	assert.Equal(t, 3, first.Dice.Value)

	second, err := bot.Send(tgbotapi.NewDiceWithEmoji(42, DiceEmojiDarts))
	require.NoError(t, err)
	assert.Equal(t, 99, second.Dice.Value, "queued values are not range checked")
	assert.Empty(t, transport.PendingDiceValues())

	third, err := bot.Send(tgbotapi.NewDiceWithEmoji(42, DiceEmojiBasketball))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, third.Dice.Value, 1)
	assert.LessOrEqual(t, third.Dice.Value, 5)

	sends := transport.Store().DiceSends(OnlyChat(42))
	require.Len(t, sends, 3)
	value, ok := sends[0].DiceValue()
	require.True(t, ok)
	assert.Equal(t, 3, value)
	assert.Empty(t, sends[0].Params.(DiceParams).Emoji)
}

func TestTransportRejectsWrongToken(t *testing.T) {
	t.Parallel()

	transport := NewTransport(NewStore())
	server := httptest.NewServer(transport.Handler())
	defer server.Close()

	_, err := tgbotapi.NewBotAPIWithClient("9:wrong", server.URL+"/bot%s/%s", server.Client())
	require.Error(t, err)
	var apiErr *tgbotapi.Error
	require.True(t, errors.As(err, &apiErr), "error %v is not a Bot API error", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)
	assert.Zero(t, transport.Store().Len())

	bot, err := tgbotapi.NewBotAPIWithClient(DefaultToken, server.URL+"/bot%s/%s", server.Client())
	require.NoError(t, err)
	assert.Equal(t, DefaultBotUsername, bot.Self.UserName)
}

func TestTransportUnknownRoute(t *testing.T) {
	t.Parallel()

	transport := NewTransport(NewStore())
	request := httptest.NewRequest(http.MethodPost, "/file/bot1:x/photo.jpg", nil)
	recorder := httptest.NewRecorder()
	transport.Handler().ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.JSONEq(t, `{"ok":false,"error_code":404,"description":"Not Found"}`, recorder.Body.String())
}
