package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"botharness/pkg/bottest"
)

// Result summarizes one scenario run.
type Result struct {
	// RunID identifies the run in logs.
	RunID uuid.UUID
	// Scenario is the scenario name.
	Scenario string
	// Steps is the number of steps that completed, including the failing one.
	Steps int
	// Calls is the number of calls the bot made during the run.
	Calls int
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Run plays the scenario against client. It stops at the first failing step;
// assertion failures wrap ErrAssertion, delivery errors are wrapped as they
// come from the client.
func (s *Scenario) Run(ctx context.Context, client *bottest.Client) (Result, error) {
	result := Result{RunID: uuid.New(), Scenario: s.Name}
	start := time.Now()

	users := make(map[string]*bottest.User, len(s.Users))
	var fallback *bottest.User
	for _, spec := range s.Users {
		user := client.NewUser(spec.options()...)
		users[spec.Key] = user
		if fallback == nil {
			fallback = user
		}
	}

	for idx, step := range s.Steps {
		result.Steps = idx + 1

		user := fallback
		if step.User != "" {
			user = users[step.User]
		}
		if user == nil {
			user = client.NewUser()
			fallback = user
		}

		calls, err := step.perform(ctx, client, user)
		result.Calls += len(calls)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("scenario %q step %d: %w", s.Name, idx+1, err)
		}
		if err := step.Expect.check(calls); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("scenario %q step %d: %w", s.Name, idx+1, err)
		}
	}
	result.Duration = time.Since(start)

	return result, nil
}

func (u UserSpec) options() []bottest.UserOption {
	var options []bottest.UserOption
	if u.FirstName != "" || u.LastName != "" {
		first := u.FirstName
		if first == "" {
			first = "Test"
		}
		options = append(options, bottest.WithNames(first, u.LastName))
	}
	if u.Handle != "" {
		options = append(options, bottest.WithHandle(u.Handle))
	}
	if u.Language != "" {
		options = append(options, bottest.WithLanguage(u.Language))
	}

	return options
}

func (s Step) perform(ctx context.Context, client *bottest.Client, user *bottest.User) ([]bottest.CapturedCall, error) {
	switch {
	case s.Reset:
		client.Reset()
		return nil, nil
	case len(s.QueueDice) > 0:
		for _, value := range s.QueueDice {
			client.Transport().SetNextDiceValue(value)
		}
		return nil, nil
	case s.Dice != nil:
		return user.SendDice(ctx, s.Dice.Emoji, s.Dice.Value)
	case s.Click != "":
		return user.ClickButton(ctx, s.Click)
	case strings.HasPrefix(s.Send, "/"):
		command, args, _ := strings.Cut(strings.TrimPrefix(s.Send, "/"), " ")
		return user.SendCommand(ctx, command, strings.TrimSpace(args))
	default:
		return user.SendText(ctx, s.Send)
	}
}

func (e Expect) check(calls []bottest.CapturedCall) error {
	if e.NoReply && len(calls) > 0 {
		return fmt.Errorf("want no reply, got %d calls %v: %w", len(calls), calls, ErrAssertion)
	}

	texts := make([]string, 0, len(calls))
	for _, call := range calls {
		if text := call.Text(); text != "" {
			texts = append(texts, text)
		}
	}
	for _, want := range e.Contains {
		if !anyContains(texts, want) {
			return fmt.Errorf("no reply contains %q in %q: %w", want, texts, ErrAssertion)
		}
	}
	for _, unwanted := range e.Absent {
		if anyContains(texts, unwanted) {
			return fmt.Errorf("a reply contains %q in %q: %w", unwanted, texts, ErrAssertion)
		}
	}
	if e.LastText != "" {
		if len(texts) == 0 {
			return fmt.Errorf("last text = <none>, want %q: %w", e.LastText, ErrAssertion)
		}
		if last := texts[len(texts)-1]; last != e.LastText {
			return fmt.Errorf("last text = %q, want %q: %w", last, e.LastText, ErrAssertion)
		}
	}

	counted := len(calls)
	label := "calls"
	if e.Kind != "" {
		kind := bottest.KindOf(e.Kind)
		counted = 0
		for _, call := range calls {
			if call.Kind == kind {
				counted++
			}
		}
		label = e.Kind + " calls"
	}
	if e.Count != nil && counted != *e.Count {
		return fmt.Errorf("%s = %d, want %d: %w", label, counted, *e.Count, ErrAssertion)
	}
	if counted < e.MinCount {
		return fmt.Errorf("%s = %d, want at least %d: %w", label, counted, e.MinCount, ErrAssertion)
	}

	return nil
}

func anyContains(texts []string, substr string) bool {
	for _, text := range texts {
		if strings.Contains(text, substr) {
			return true
		}
	}

	return false
}

func knownKind(name string) bool {
	return name == string(bottest.CallOther) || bottest.KindOf(name) != bottest.CallOther
}

func validateDice(emoji string, value int) error {
	if emoji == "" {
		emoji = bottest.DiceEmojiDie
	}

	return bottest.ValidateDiceValue(emoji, value)
}
