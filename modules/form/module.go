// Package form implements a registration conversation: name, age and a
// confirmation keyboard, kept in per-user conversation state.
package form

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botharness/pkg/dispatch"
)

// Conversation states.
const (
	StateName    dispatch.State = "form:name"
	StateAge     dispatch.State = "form:age"
	StateConfirm dispatch.State = "form:confirm"
)

// Callback data of the keyboards.
const (
	CallbackBegin   = "begin"
	CallbackHelp    = "help"
	CallbackConfirm = "confirm"
	CallbackCancel  = "cancel"
)

const (
	dataName = "name"
	dataAge  = "age"
)

// Replies.
const (
	TextWelcome      = "Welcome! Choose an option:"
	TextBegin        = "Let's begin! Send /form to fill in the form."
	TextHelp         = "Here's the help information."
	TextAskName      = "Please enter your name:"
	TextAskAge       = "Now enter your age:"
	TextInvalidAge   = "Please enter a valid number:"
	TextCancelled    = "Form cancelled."
	TextNothing      = "Nothing to cancel."
	TextUnknown      = "Unknown command. Use /help for assistance."
	toastOpeningHelp = "Opening help..."
	toastConfirmed   = "Confirmed!"
	toastCancelled   = "Cancelled"
)

// Module runs the registration conversation.
type Module struct{}

// New creates a form module.
func New() *Module {
	return &Module{}
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "form"
}

// Spec declares the form commands, the state handlers and the unknown-text
// fallback, which is registered last.
func (m *Module) Spec() dispatch.ModuleSpec {
	return dispatch.ModuleSpec{
		Commands: []dispatch.ModuleCommand{
			{
				Spec:    dispatch.CommandSpec{Name: "start", Description: "show the welcome menu"},
				Handler: m.handleStart,
			},
			{
				Spec:    dispatch.CommandSpec{Name: "form", Description: "fill in the registration form"},
				Handler: m.handleForm,
			},
			{
				Spec:    dispatch.CommandSpec{Name: "cancel", Description: "abandon the registration form"},
				Handler: m.handleCancelCommand,
			},
		},
		Handlers: []dispatch.ModuleHandler{
			{
				Kind:    dispatch.UpdateMessage,
				Filters: []dispatch.Filter{dispatch.InState(StateName), dispatch.HasText()},
				Handler: m.handleName,
			},
			{
				Kind:    dispatch.UpdateMessage,
				Filters: []dispatch.Filter{dispatch.InState(StateAge)},
				Handler: m.handleAge,
			},
			{
				Kind:    dispatch.UpdateCallbackQuery,
				Filters: []dispatch.Filter{dispatch.CallbackData(CallbackBegin)},
				Handler: m.handleBegin,
			},
			{
				Kind:    dispatch.UpdateCallbackQuery,
				Filters: []dispatch.Filter{dispatch.CallbackData(CallbackHelp)},
				Handler: m.handleHelp,
			},
			{
				Kind:    dispatch.UpdateCallbackQuery,
				Filters: []dispatch.Filter{dispatch.CallbackData(CallbackConfirm), dispatch.InState(StateConfirm)},
				Handler: m.handleConfirm,
			},
			{
				Kind:    dispatch.UpdateCallbackQuery,
				Filters: []dispatch.Filter{dispatch.CallbackData(CallbackCancel), dispatch.InState(StateConfirm)},
				Handler: m.handleCancelButton,
			},
			{
				Kind:    dispatch.UpdateMessage,
				Filters: []dispatch.Filter{dispatch.HasText()},
				Handler: m.handleUnknown,
			},
		},
	}
}

func (m *Module) handleStart(_ context.Context, req *dispatch.Request) error {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Begin", CallbackBegin)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Help", CallbackHelp)),
	)
	if _, err := req.Answer(TextWelcome, dispatch.WithReplyMarkup(keyboard)); err != nil {
		return fmt.Errorf("form send welcome: %w", err)
	}

	return nil
}

func (m *Module) handleForm(ctx context.Context, req *dispatch.Request) error {
	if err := req.State().Clear(ctx); err != nil {
		return fmt.Errorf("form start: %w", err)
	}
	if err := req.State().Set(ctx, StateName); err != nil {
		return fmt.Errorf("form start: %w", err)
	}
	if _, err := req.Answer(TextAskName); err != nil {
		return fmt.Errorf("form ask name: %w", err)
	}

	return nil
}

func (m *Module) handleName(ctx context.Context, req *dispatch.Request) error {
	if _, err := req.State().UpdateData(ctx, map[string]string{dataName: req.Text()}); err != nil {
		return fmt.Errorf("form store name: %w", err)
	}
	if err := req.State().Set(ctx, StateAge); err != nil {
		return fmt.Errorf("form store name: %w", err)
	}
	if _, err := req.Answer(TextAskAge); err != nil {
		return fmt.Errorf("form ask age: %w", err)
	}

	return nil
}

func (m *Module) handleAge(ctx context.Context, req *dispatch.Request) error {
	age := req.Text()
	if !isDigits(age) {
		if _, err := req.Answer(TextInvalidAge); err != nil {
			return fmt.Errorf("form re-ask age: %w", err)
		}
		return nil
	}

	data, err := req.State().UpdateData(ctx, map[string]string{dataAge: age})
	if err != nil {
		return fmt.Errorf("form store age: %w", err)
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Confirm", CallbackConfirm),
		tgbotapi.NewInlineKeyboardButtonData("Cancel", CallbackCancel),
	))
	summary := fmt.Sprintf("Your data:\nName: %s\nAge: %s\n\nConfirm?", data[dataName], age)
	if _, err := req.Answer(summary, dispatch.WithReplyMarkup(keyboard)); err != nil {
		return fmt.Errorf("form send summary: %w", err)
	}
	if err := req.State().Set(ctx, StateConfirm); err != nil {
		return fmt.Errorf("form await confirmation: %w", err)
	}

	return nil
}

func (m *Module) handleBegin(_ context.Context, req *dispatch.Request) error {
	if err := req.AnswerCallback(""); err != nil {
		return fmt.Errorf("form begin: %w", err)
	}
	if _, err := req.EditText(TextBegin, nil); err != nil {
		return fmt.Errorf("form begin: %w", err)
	}

	return nil
}

func (m *Module) handleHelp(_ context.Context, req *dispatch.Request) error {
	if err := req.AnswerCallback(toastOpeningHelp); err != nil {
		return fmt.Errorf("form help: %w", err)
	}
	if _, err := req.EditText(TextHelp, nil); err != nil {
		return fmt.Errorf("form help: %w", err)
	}

	return nil
}

func (m *Module) handleConfirm(ctx context.Context, req *dispatch.Request) error {
	data, err := req.State().Data(ctx)
	if err != nil {
		return fmt.Errorf("form confirm: %w", err)
	}
	if err := req.AnswerCallback(toastConfirmed); err != nil {
		return fmt.Errorf("form confirm: %w", err)
	}
	text := fmt.Sprintf("Registration complete!\nWelcome, %s (%s)!", data[dataName], data[dataAge])
	if _, err := req.EditText(text, nil); err != nil {
		return fmt.Errorf("form confirm: %w", err)
	}
	req.Logger().DebugContext(ctx, "form completed", "user_id", req.Sender().ID)

	return req.State().Clear(ctx)
}

func (m *Module) handleCancelButton(ctx context.Context, req *dispatch.Request) error {
	if err := req.AnswerCallback(toastCancelled); err != nil {
		return fmt.Errorf("form cancel: %w", err)
	}
	if _, err := req.EditText(TextCancelled, nil); err != nil {
		return fmt.Errorf("form cancel: %w", err)
	}

	return req.State().Clear(ctx)
}

func (m *Module) handleCancelCommand(ctx context.Context, req *dispatch.Request) error {
	text := TextCancelled
	if req.CurrentState() == "" {
		text = TextNothing
	}
	if err := req.State().Clear(ctx); err != nil {
		return fmt.Errorf("form cancel: %w", err)
	}
	if _, err := req.Answer(text); err != nil {
		return fmt.Errorf("form cancel: %w", err)
	}

	return nil
}

func (m *Module) handleUnknown(_ context.Context, req *dispatch.Request) error {
	if _, err := req.Answer(TextUnknown); err != nil {
		return fmt.Errorf("form send fallback: %w", err)
	}

	return nil
}

func isDigits(text string) bool {
	if text == "" {
		return false
	}
	for idx := 0; idx < len(text); idx++ {
		if text[idx] < '0' || text[idx] > '9' {
			return false
		}
	}

	return true
}

var _ dispatch.Module = (*Module)(nil)
