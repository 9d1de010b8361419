package pingpong

import (
	"context"
	"fmt"

	"botharness/pkg/dispatch"
)

const pingCommandName = "ping"

// Module replies with "pong!" to the "/ping" command.
type Module struct{}

// New creates a ping-pong module with default configuration.
func New() *Module {
	return &Module{}
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "pingpong"
}

// Spec declares the ping command.
func (m *Module) Spec() dispatch.ModuleSpec {
	return dispatch.ModuleSpec{
		Commands: []dispatch.ModuleCommand{
			{
				Spec: dispatch.CommandSpec{
					Name:        pingCommandName,
					Description: "reply with pong!",
				},
				Handler: m.handleCommand,
			},
		},
	}
}

func (m *Module) handleCommand(_ context.Context, req *dispatch.Request) error {
	if _, err := req.Answer("pong!", dispatch.AsReply()); err != nil {
		return fmt.Errorf("pingpong send pong message: %w", err)
	}

	return nil
}
