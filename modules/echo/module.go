package echo

import (
	"context"
	"fmt"

	"botharness/pkg/dispatch"
)

const replyPrefix = "You said: "

// Module repeats every plain text message back to its chat.
type Module struct{}

// New creates an echo module.
func New() *Module {
	return &Module{}
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "echo"
}

// Spec declares one handler for non-command text.
func (m *Module) Spec() dispatch.ModuleSpec {
	return dispatch.ModuleSpec{
		Handlers: []dispatch.ModuleHandler{
			{
				Kind:    dispatch.UpdateMessage,
				Filters: []dispatch.Filter{dispatch.HasText(), dispatch.Not(dispatch.AnyCommand())},
				Handler: m.handleText,
			},
		},
	}
}

func (m *Module) handleText(_ context.Context, req *dispatch.Request) error {
	if _, err := req.Answer(replyPrefix + req.Text()); err != nil {
		return fmt.Errorf("echo send reply: %w", err)
	}

	return nil
}

var _ dispatch.Module = (*Module)(nil)
