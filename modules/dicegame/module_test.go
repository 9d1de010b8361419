package dicegame

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botharness/pkg/bottest"
	"botharness/pkg/dispatch"
)

func newClient(t *testing.T) *bottest.Client {
	t.Helper()

	return bottest.Start(t,
		bottest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		bottest.WithSetup(func(_ *tgbotapi.BotAPI, dispatcher *dispatch.Dispatcher) error {
			return dispatcher.RegisterModule(context.Background(), New())
		}),
	)
}

func TestModuleRoll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     string
		queued   int
		wantDice string
		wantText string
	}{
		{name: "default die", args: "", queued: 4, wantDice: "🎲", wantText: "You rolled 4 out of 6."},
		{name: "darts", args: "🎯", queued: 6, wantDice: "🎯", wantText: "You rolled 6 out of 6."},
		{name: "basketball", args: "🏀", queued: 2, wantDice: "🏀", wantText: "You rolled 2 out of 5."},
		{name: "slot machine", args: " 🎰 ", queued: 64, wantDice: "🎰", wantText: "You rolled 64 out of 64."},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t)
			client.Transport().SetNextDiceValue(testCase.queued)
			calls, err := client.NewUser().SendCommand(context.Background(), "roll", testCase.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(calls) != 2 {
				t.Fatalf("calls = %d, want 2", len(calls))
			}
			if calls[0].Kind != bottest.CallSendDice || calls[0].Fields["emoji"] != testCase.wantDice {
				t.Fatalf("first call = %s, want sendDice %s", calls[0], testCase.wantDice)
			}
			if value, ok := calls[0].DiceValue(); !ok || value != testCase.queued {
				t.Fatalf("dice value = %d, %v, want %d", value, ok, testCase.queued)
			}
			if got := calls[1].Text(); got != testCase.wantText {
				t.Fatalf("report = %q, want %q", got, testCase.wantText)
			}
			markup := calls[1].ReplyMarkup()
			if markup == nil || len(markup.InlineKeyboard) != 1 {
				t.Fatalf("report keyboard = %+v, want one row", markup)
			}
			if data := markup.InlineKeyboard[0][0].CallbackData; data == nil || *data != RerollPrefix+testCase.wantDice {
				t.Fatalf("reroll data = %v, want %q", data, RerollPrefix+testCase.wantDice)
			}
		})
	}
}

func TestModuleRollRejectsUnknownEmoji(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	calls, err := client.NewUser().SendCommand(context.Background(), "roll", "🃏")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0].Kind != bottest.CallSendMessage {
		t.Fatalf("calls = %v, want one message", calls)
	}
	if !strings.HasPrefix(calls[0].Text(), `Unknown dice "🃏"`) {
		t.Fatalf("reply = %q", calls[0].Text())
	}
	if len(client.Transport().PendingDiceValues()) != 0 {
		t.Fatal("dice queue changed")
	}
}

func TestModuleReroll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newClient(t)
	user := client.NewUser()
	client.Transport().SetNextDiceValue(1)
	client.Transport().SetNextDiceValue(3)

	if _, err := user.SendCommand(ctx, "roll", "⚽"); err != nil {
		t.Fatalf("roll: %v", err)
	}
	calls, err := user.ClickButton(ctx, RerollPrefix+"⚽")
	if err != nil {
		t.Fatalf("reroll: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("reroll calls = %d, want 3", len(calls))
	}
	if calls[0].Kind != bottest.CallAnswerCallback || calls[0].Text() != "Rolling..." {
		t.Fatalf("first reroll call = %s", calls[0])
	}
	if got := calls[2].Text(); got != "You rolled 3 out of 5." {
		t.Fatalf("reroll report = %q", got)
	}

	calls, err = user.ClickButton(ctx, RerollPrefix+"🃏")
	if err != nil {
		t.Fatalf("stale reroll: %v", err)
	}
	if len(calls) != 1 || calls[0].Kind != bottest.CallAnswerCallback {
		t.Fatalf("stale reroll calls = %v, want one callback answer", calls)
	}
}

func TestModuleScoresThrownDice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		emoji string
		value int
		want  string
	}{
		{name: "low die", emoji: "🎲", value: 2, want: "You threw 2 out of 6."},
		{name: "perfect bowling", emoji: "🎳", value: 6, want: "You threw 6 out of 6. Perfect throw!"},
		{name: "perfect football", emoji: "⚽", value: 5, want: "You threw 5 out of 5. Perfect throw!"},
		{name: "jackpot", emoji: "🎰", value: 64, want: "You threw 64 out of 64. Jackpot!"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t)
			calls, err := client.NewUser().SendDice(context.Background(), testCase.emoji, testCase.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(calls))
			}
			if got := calls[0].Text(); got != testCase.want {
				t.Fatalf("score = %q, want %q", got, testCase.want)
			}
			if _, ok := calls[0].Fields["reply_to_message_id"]; !ok {
				t.Fatal("score does not reply to the throw")
			}
		})
	}
}

func TestModuleIgnoresText(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	calls, err := client.NewUser().SendText(context.Background(), "roll please")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("calls = %d, want 0", len(calls))
	}
}
