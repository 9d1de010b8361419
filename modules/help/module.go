package help

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botharness/pkg/dispatch"
)

const helpCommandName = "help"

// Module replies with the command reference to /help and publishes the
// command menu on startup.
type Module struct {
	commandCatalog dispatch.CommandCatalog
}

// New creates a help module with default configuration.
func New() *Module {
	return &Module{}
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "help"
}

// Spec declares the help command.
func (m *Module) Spec() dispatch.ModuleSpec {
	return dispatch.ModuleSpec{
		Commands: []dispatch.ModuleCommand{
			{
				Spec: dispatch.CommandSpec{
					Name:        helpCommandName,
					Description: "show all available commands",
				},
				Handler: m.handleCommand,
			},
		},
	}
}

// OnRegister resolves the command catalog.
func (m *Module) OnRegister(_ context.Context, runtime dispatch.ModuleRuntime) error {
	commandCatalog, err := dispatch.ResolveAs[dispatch.CommandCatalog](
		runtime.Services(),
		dispatch.ServiceCommandCatalog,
	)
	if err != nil {
		return fmt.Errorf("help resolve command catalog: %w", err)
	}

	m.commandCatalog = commandCatalog

	return nil
}

// OnStart publishes every registered command with setMyCommands.
func (m *Module) OnStart(ctx context.Context, bot *tgbotapi.BotAPI) error {
	if m.commandCatalog == nil {
		return fmt.Errorf("help publish commands: command catalog not configured")
	}
	commands, err := m.commandCatalog.ListCommands(ctx)
	if err != nil {
		return fmt.Errorf("help list commands: %w", err)
	}

	menu := make([]tgbotapi.BotCommand, 0, len(commands))
	seen := make(map[string]struct{}, len(commands))
	for _, command := range commands {
		name := strings.ToLower(strings.TrimSpace(command.Command.Name))
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		menu = append(menu, tgbotapi.BotCommand{
			Command:     name,
			Description: strings.TrimSpace(command.Command.Description),
		})
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(menu...)); err != nil {
		return fmt.Errorf("help publish commands: %w", err)
	}

	return nil
}

func (m *Module) handleCommand(ctx context.Context, req *dispatch.Request) error {
	if m.commandCatalog == nil {
		return fmt.Errorf("help handle command: command catalog not configured")
	}

	commands, err := m.commandCatalog.ListCommands(ctx)
	if err != nil {
		return fmt.Errorf("help list commands: %w", err)
	}
	if _, err := req.Answer(renderHelp(commands), dispatch.AsReply()); err != nil {
		return fmt.Errorf("help send help message: %w", err)
	}

	return nil
}

func renderHelp(commands []dispatch.RegisteredCommand) string {
	if len(commands) == 0 {
		return "Available commands:\n(none)"
	}

	sorted := append([]dispatch.RegisteredCommand(nil), commands...)
	sort.Slice(sorted, func(i, j int) bool {
		left := commandLabel(sorted[i].Command)
		right := commandLabel(sorted[j].Command)
		if left == right {
			return sorted[i].RouterName < sorted[j].RouterName
		}
		return left < right
	})

	lines := make([]string, 0, len(sorted)*4+1)
	lines = append(lines, "Available commands:\n")
	for index, command := range sorted {
		if index > 0 {
			lines = append(lines, "")
		}
		description := strings.TrimSpace(command.Command.Description)
		moduleName := strings.TrimSpace(command.RouterName)
		if moduleName == "" {
			moduleName = "unknown"
		}

		lines = append(lines, commandLabel(command.Command))
		if description != "" {
			lines = append(lines, description)
		}
		lines = append(lines, fmt.Sprintf("(%s)", moduleName))
	}

	return strings.Join(lines, "\n")
}

func commandLabel(command dispatch.CommandSpec) string {
	return "/" + strings.ToLower(strings.TrimSpace(command.Name))
}

var (
	_ dispatch.Module          = (*Module)(nil)
	_ dispatch.ModuleRegistrar = (*Module)(nil)
	_ dispatch.ModuleStarter   = (*Module)(nil)
)
