// Package dicegame throws animated dice for users and scores the dice they
// throw themselves.
package dicegame

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botharness/pkg/dispatch"
)

// RerollPrefix prefixes the callback data of the reroll button.
const RerollPrefix = "reroll:"

const defaultEmoji = "🎲"

// faces maps each dice emoji to its highest value. Values start at 1.
var faces = map[string]int{
	"🎲": 6,
	"🎯": 6,
	"🎳": 6,
	"🏀": 5,
	"⚽": 5,
	"🎰": 64,
}

// emojiOrder lists the emojis in the order shown to users.
var emojiOrder = []string{"🎲", "🎯", "🎳", "🏀", "⚽", "🎰"}

var errNoDice = errors.New("dicegame: response carries no dice")

// Module implements /roll, the reroll button and scoring of thrown dice.
type Module struct{}

// New creates a dice game module.
func New() *Module {
	return &Module{}
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "dicegame"
}

// Spec declares the roll command, the reroll button and the thrown dice
// handler.
func (m *Module) Spec() dispatch.ModuleSpec {
	return dispatch.ModuleSpec{
		Commands: []dispatch.ModuleCommand{
			{
				Spec:    dispatch.CommandSpec{Name: "roll", Description: "throw a dice, optionally naming its emoji"},
				Handler: m.handleRoll,
			},
		},
		Handlers: []dispatch.ModuleHandler{
			{
				Kind:    dispatch.UpdateCallbackQuery,
				Filters: []dispatch.Filter{dispatch.CallbackDataPrefix(RerollPrefix)},
				Handler: m.handleReroll,
			},
			{
				Kind:    dispatch.UpdateMessage,
				Filters: []dispatch.Filter{dispatch.HasDice()},
				Handler: m.handleThrown,
			},
		},
	}
}

func (m *Module) handleRoll(_ context.Context, req *dispatch.Request) error {
	emoji := strings.TrimSpace(req.Message().CommandArguments())
	if emoji == "" {
		emoji = defaultEmoji
	}
	if _, ok := faces[emoji]; !ok {
		text := fmt.Sprintf("Unknown dice %q. Try one of: %s", emoji, strings.Join(emojiOrder, " "))
		if _, err := req.Answer(text, dispatch.AsReply()); err != nil {
			return fmt.Errorf("dicegame reject emoji: %w", err)
		}
		return nil
	}

	return m.throw(req, emoji)
}

func (m *Module) handleReroll(_ context.Context, req *dispatch.Request) error {
	emoji := strings.TrimPrefix(req.Text(), RerollPrefix)
	if _, ok := faces[emoji]; !ok {
		if err := req.AnswerCallback("This dice is gone."); err != nil {
			return fmt.Errorf("dicegame reroll: %w", err)
		}
		return nil
	}
	if err := req.AnswerCallback("Rolling..."); err != nil {
		return fmt.Errorf("dicegame reroll: %w", err)
	}

	return m.throw(req, emoji)
}

func (m *Module) handleThrown(ctx context.Context, req *dispatch.Request) error {
	dice := req.Message().Dice
	highest, ok := faces[dice.Emoji]
	if !ok {
		req.Logger().DebugContext(ctx, "dicegame ignored unknown dice", "emoji", dice.Emoji)
		return nil
	}

	if _, err := req.Answer(score(dice.Emoji, dice.Value, highest), dispatch.AsReply()); err != nil {
		return fmt.Errorf("dicegame score throw: %w", err)
	}

	return nil
}

// throw sends a dice and reports its value with a reroll button.
func (m *Module) throw(req *dispatch.Request, emoji string) error {
	message, err := req.Send(tgbotapi.NewDiceWithEmoji(req.ChatID(), emoji))
	if err != nil {
		return fmt.Errorf("dicegame throw %s: %w", emoji, err)
	}
	if message.Dice == nil {
		return fmt.Errorf("dicegame throw %s: %w", emoji, errNoDice)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Reroll", RerollPrefix+emoji),
	))
	text := fmt.Sprintf("You rolled %d out of %d.", message.Dice.Value, faces[emoji])
	if _, err := req.Answer(text, dispatch.WithReplyMarkup(keyboard)); err != nil {
		return fmt.Errorf("dicegame report throw: %w", err)
	}

	return nil
}

func score(emoji string, value, highest int) string {
	text := fmt.Sprintf("You threw %d out of %d.", value, highest)
	if value == highest {
		if emoji == "🎰" {
			return text + " Jackpot!"
		}
		return text + " Perfect throw!"
	}

	return text
}

var _ dispatch.Module = (*Module)(nil)
