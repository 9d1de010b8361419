package bottest

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botharness/pkg/dispatch"
)

const stateAskName dispatch.State = "ask_name"

// greeterSetup asks for a name on /name and greets with it on the next text.
func greeterSetup(_ *tgbotapi.BotAPI, dispatcher *dispatch.Dispatcher) error {
	dispatcher.Command(dispatch.CommandSpec{Name: "name", Description: "Ask for a name"},
		func(ctx context.Context, req *dispatch.Request) error {
			if err := req.State().Set(ctx, stateAskName); err != nil {
				return err
			}
			_, err := req.Answer("What is your name?")
			return err
		})
	dispatcher.Message(func(ctx context.Context, req *dispatch.Request) error {
		if err := req.State().Clear(ctx); err != nil {
			return err
		}
		_, err := req.Answer("Hello " + req.Text())
		return err
	}, dispatch.InState(stateAskName), dispatch.HasText())
	dispatcher.CallbackQuery(func(ctx context.Context, req *dispatch.Request) error {
		return req.AnswerCallback("clicked " + req.Text())
	})

	return nil
}

func TestUsersAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := Start(t, WithLogger(discardLogger()), WithClock(fixedClock), WithSetup(greeterSetup))
	ann := client.NewUser(WithNames("Ann", ""))
	bob := client.NewUser(WithNames("Bob", ""))
	require.NotEqual(t, ann.Identity().ID, bob.Identity().ID)
	assert.Equal(t, ann.Identity().ID, ann.Chat().ID)

	_, err := ann.SendCommand(ctx, "name", "")
	require.NoError(t, err)
	_, err = bob.SendCommand(ctx, "name", "")
	require.NoError(t, err)

	calls, err := bob.SendText(ctx, "Bob")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	calls, err = ann.SendText(ctx, "Ann")
	require.NoError(t, err)
	require.Len(t, calls, 1)

	annLast, ok := ann.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "Hello Ann", annLast.Text())
	bobLast, ok := bob.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "Hello Bob", bobLast.Text())

	assert.Len(t, ann.SentMessages(), 2)
	assert.Len(t, bob.SentMessages(), 2)
	assert.True(t, ann.ReceivedTextContaining("Ann"))
	assert.False(t, ann.ReceivedTextContaining("Bob"))

	calls, err = ann.SendText(ctx, "after")
	require.NoError(t, err)
	assert.Empty(t, calls, "state was cleared after the greeting")
}

func TestUserClickButtonInBoundChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := Start(t, WithLogger(discardLogger()), WithSetup(greeterSetup))
	group := client.Factory().GroupChat(-500, "")
	member := client.UserInChat(client.Factory().User(), group)

	calls, err := member.ClickButton(ctx, "yes")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	answer := calls[0].Params.(CallbackAnswerParams)
	assert.Equal(t, "clicked yes", answer.Text)

	calls, err = member.SendCommand(ctx, "name", "")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	chatID, ok := calls[0].ChatID()
	require.True(t, ok)
	assert.Equal(t, int64(-500), chatID)
	assert.Len(t, member.SentMessages(), 1)
}

func TestUserBindMovesToAnotherClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := Start(t, WithLogger(discardLogger()), WithSetup(echoSetup))
	second := Start(t, WithLogger(discardLogger()), WithSetup(echoSetup))

	user := first.NewUser()
	identity := user.Identity()
	user.Bind(second)
	assert.Same(t, second, user.Client())
	assert.Same(t, identity, user.Identity())

	_, err := user.SendText(ctx, "moved")
	require.NoError(t, err)
	assert.Zero(t, first.Store().Len())
	assert.True(t, user.ReceivedTextContaining("You said: moved"))

	calls, err := user.SendDice(ctx, DiceEmojiDarts, 6)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, CallSendDice, calls[0].Kind)
}
