package bottest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorded(kind CallKind, fields map[string]string) CapturedCall {
	return CapturedCall{
		Kind:      kind,
		Method:    string(kind),
		Params:    decodeParams(kind, string(kind), fields),
		Fields:    fields,
		Timestamp: fixedNow,
	}
}

func seededStore() *Store {
	store := NewStore()
	store.Add(recorded(CallSendMessage, map[string]string{"chat_id": "1", "text": "Hello one"}))
	store.Add(recorded(CallSendMessage, map[string]string{"chat_id": "2", "text": "Hello two"}))
	store.Add(recorded(CallEditMessageText, map[string]string{"chat_id": "1", "message_id": "3", "text": "edited"}))
	store.Add(recorded(CallAnswerCallback, map[string]string{"callback_query_id": "9"}))
	store.Add(recorded(CallSendMessage, map[string]string{"chat_id": "@news", "text": "channel post"}))
	store.Add(recorded(CallSendMessage, map[string]string{"chat_id": "1", "text": ""}))
	store.Add(recorded(CallDeleteMessage, map[string]string{"chat_id": "2", "message_id": "4"}))
	store.Add(recorded(CallSendDice, map[string]string{"chat_id": "1"}))

	return store
}

func TestStoreQueries(t *testing.T) {
	t.Parallel()

	store := seededStore()
	require.Equal(t, 8, store.Len())

	tests := []struct {
		name  string
		calls []CapturedCall
		want  int
	}{
		{name: "all sent", calls: store.SentMessages(AnyChat()), want: 4},
		{name: "sent to chat 1", calls: store.SentMessages(OnlyChat(1)), want: 2},
		{name: "sent to chat 2", calls: store.SentMessages(OnlyChat(2)), want: 1},
		{name: "sent to unknown chat", calls: store.SentMessages(OnlyChat(77)), want: 0},
		{name: "edited in chat 1", calls: store.EditedMessages(OnlyChat(1)), want: 1},
		{name: "deleted anywhere", calls: store.DeletedMessages(AnyChat()), want: 1},
		{name: "callback answers", calls: store.CallbackAnswers(), want: 1},
		{name: "dice in chat 1", calls: store.DiceSends(OnlyChat(1)), want: 1},
		{name: "by kind", calls: store.ByKind(CallSendMessage), want: 4},
		{name: "by missing kind", calls: store.ByKind(CallSendPoll), want: 0},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.NotNil(t, testCase.calls)
			assert.Len(t, testCase.calls, testCase.want)
		})
	}
}

func TestStoreFilterSkipsCallsWithoutNumericChat(t *testing.T) {
	t.Parallel()

	store := seededStore()
	for _, call := range store.SentMessages(OnlyChat(0)) {
		t.Fatalf("OnlyChat(0) matched %s", call)
	}

	answer := store.CallbackAnswers()[0]
	assert.True(t, AnyChat().Match(answer))
	assert.False(t, OnlyChat(1).Match(answer))
}

func TestStoreLastAndContains(t *testing.T) {
	t.Parallel()

	store := seededStore()

	last, ok := store.LastMessage(OnlyChat(1))
	require.True(t, ok)
	assert.Empty(t, last.Text())

	last, ok = store.LastMessage(OnlyChat(2))
	require.True(t, ok)
	assert.Equal(t, "Hello two", last.Text())

	_, ok = store.LastMessage(OnlyChat(3))
	assert.False(t, ok)

	call, ok := store.LastCall()
	require.True(t, ok)
	assert.Equal(t, CallSendDice, call.Kind)

	assert.True(t, store.ContainsText("Hello", AnyChat()))
	assert.True(t, store.ContainsText("one", OnlyChat(1)))
	assert.False(t, store.ContainsText("two", OnlyChat(1)))
	assert.False(t, store.ContainsText("hello", AnyChat()), "match is case-sensitive")
	empty := NewStore()
	empty.Add(recorded(CallSendMessage, map[string]string{"chat_id": "1", "text": ""}))
	assert.False(t, empty.ContainsText("", AnyChat()), "empty texts never match")
	assert.False(t, store.ContainsText("edited", AnyChat()), "edits are not sent messages")

	assert.Equal(t, 4, store.CountByKind(CallSendMessage))
	assert.Equal(t, 0, store.CountByKind(CallOther))
}

func TestStoreSinceAndClear(t *testing.T) {
	t.Parallel()

	store := seededStore()
	assert.Len(t, store.Since(6), 2)
	assert.Len(t, store.Since(-1), 8)
	assert.Len(t, store.All(), 8)

	all := store.All()
	all[0].Method = "mutated"
	assert.Equal(t, "sendMessage", store.All()[0].Method, "results must be copies")

	store.Clear()
	assert.Equal(t, 0, store.Len())
	since := store.Since(6)
	assert.NotNil(t, since)
	assert.Empty(t, since)

	_, ok := store.LastCall()
	assert.False(t, ok)
	_, ok = store.LastMessage(AnyChat())
	assert.False(t, ok)
	assert.False(t, store.ContainsText("Hello", AnyChat()))
}

func TestCapturedCallAccessors(t *testing.T) {
	t.Parallel()

	markup := `{"inline_keyboard":[[{"text":"Yes","callback_data":"yes"}]]}`
	call := recorded(CallSendPhoto, map[string]string{
		"chat_id":      "12",
		"photo":        "cat.png",
		"caption":      "a cat",
		"reply_markup": markup,
	})

	chatID, ok := call.ChatID()
	require.True(t, ok)
	assert.Equal(t, int64(12), chatID)
	assert.Equal(t, "a cat", call.Text())
	require.NotNil(t, call.ReplyMarkup())
	assert.Equal(t, "Yes", call.ReplyMarkup().InlineKeyboard[0][0].Text)

	params, ok := call.Params.(MediaParams)
	require.True(t, ok)
	assert.Equal(t, CallSendPhoto, params.Kind())
	assert.Equal(t, "cat.png", params.File)

	_, ok = call.MessageID()
	assert.False(t, ok)
	_, ok = call.Message()
	assert.False(t, ok)
	_, ok = call.DiceValue()
	assert.False(t, ok)
	assert.Equal(t, `sendPhoto(chat_id=12, text="a cat")`, call.String())

	forced := recorded(CallSendMessage, map[string]string{
		"chat_id":      "1",
		"text":         "x",
		"reply_markup": `{"force_reply":true}`,
	})
	assert.Nil(t, forced.ReplyMarkup())
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		want   CallKind
	}{
		{method: "sendMessage", want: CallSendMessage},
		{method: "editMessageReplyMarkup", want: CallEditMessageMarkup},
		{method: "answerCallbackQuery", want: CallAnswerCallback},
		{method: "sendVideoNote", want: CallSendVideoNote},
		{method: "setMyCommands", want: CallSetMyCommands},
		{method: "setChatTitle", want: CallOther},
		{method: "other", want: CallOther},
		{method: "", want: CallOther},
		{method: "SendMessage", want: CallOther},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.method, func(t *testing.T) {
			t.Parallel()

			if got := KindOf(testCase.method); got != testCase.want {
				t.Fatalf("KindOf(%q) = %q, want %q", testCase.method, got, testCase.want)
			}
		})
	}
}

func TestDecodeParamsVariants(t *testing.T) {
	t.Parallel()

	message := decodeParams(CallSendMessage, "sendMessage", map[string]string{
		"chat_id":             "@news",
		"text":                "hi",
		"reply_to_message_id": "5",
		"parse_mode":          "HTML",
	}).(MessageParams)
	assert.Equal(t, ChatRef{Username: "@news"}, message.Chat)
	assert.Equal(t, 5, message.ReplyToMessageID)
	assert.Equal(t, "HTML", message.ParseMode)

	poll := decodeParams(CallSendPoll, "sendPoll", map[string]string{
		"chat_id":      "3",
		"question":     "Tea?",
		"options":      `["yes","no"]`,
		"is_anonymous": "false",
	}).(PollParams)
	assert.Equal(t, []string{"yes", "no"}, poll.Options)
	assert.False(t, poll.IsAnonymous)

	location := decodeParams(CallSendLocation, "sendLocation", map[string]string{
		"chat_id":   "3",
		"latitude":  "52.5",
		"longitude": "13.4",
	}).(LocationParams)
	assert.InDelta(t, 52.5, location.Latitude, 1e-9)
	assert.InDelta(t, 13.4, location.Longitude, 1e-9)

	member := decodeParams(CallBanChatMember, "banChatMember", map[string]string{
		"chat_id": "-100",
		"user_id": "42",
	}).(ChatMemberParams)
	assert.Equal(t, CallBanChatMember, member.Kind())
	assert.Equal(t, int64(42), member.UserID)

	other := decodeParams(CallOther, "setChatTitle", map[string]string{"title": "x"}).(OtherParams)
	assert.Equal(t, "setChatTitle", other.Method)
	assert.Equal(t, "x", other.Fields["title"])

	broken := decodeParams(CallSendMediaGroup, "sendMediaGroup", map[string]string{
		"chat_id": "1",
		"media":   "{not json",
	}).(MediaGroupParams)
	assert.Empty(t, broken.Media)
}
