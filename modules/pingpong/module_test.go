package pingpong

import (
	"context"
	"io"
	"log/slog"
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

func TestModuleHandleCommand(t *testing.T) {
	tests := []struct {
		name         string
		command      string
		text         string
		wantSentPong bool
	}{
		{name: "ping command triggers pong", command: "ping", wantSentPong: true},
		{name: "ping command with mention triggers pong", command: "ping@test_bot", wantSentPong: true},
		{name: "ping command with arguments triggers pong", command: "ping", text: "now", wantSentPong: true},
		{name: "non-ping command is ignored", command: "hello", wantSentPong: false},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t)
			user := client.NewUser()

			calls, err := user.SendCommand(context.Background(), testCase.command, testCase.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sentPong := len(calls) > 0
			if sentPong != testCase.wantSentPong {
				t.Fatalf("sent pong = %v, want %v", sentPong, testCase.wantSentPong)
			}
			if !sentPong {
				return
			}

			params, ok := calls[0].Params.(bottest.MessageParams)
			if !ok {
				t.Fatalf("params = %T, want MessageParams", calls[0].Params)
			}
			if params.Text != "pong!" {
				t.Fatalf("sent text = %q, want pong!", params.Text)
			}
			if params.Chat.ID != user.Chat().ID {
				t.Fatalf("chat id = %d, want %d", params.Chat.ID, user.Chat().ID)
			}
			if params.ReplyToMessageID == 0 {
				t.Fatal("reply_to = 0, want the command message id")
			}
		})
	}
}

func TestModuleIgnoresPlainText(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	calls, err := client.SendMessage(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("calls = %v, want none", calls)
	}
}

func TestModuleRegistersCommand(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	commands := client.Dispatcher().Commands()
	if len(commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(commands))
	}
	if commands[0].RouterName != "pingpong" || commands[0].Command.Name != pingCommandName {
		t.Fatalf("command = %+v, want pingpong/ping", commands[0])
	}
}
