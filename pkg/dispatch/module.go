package dispatch

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ServiceCommandCatalog is the service registry key of the dispatcher command catalog.
const ServiceCommandCatalog = "dispatch.command_catalog"

// ModuleHandler declares one handler of a module.
type ModuleHandler struct {
	// Kind selects the update payload the handler receives.
	Kind UpdateKind
	// Filters must all accept the request for Handler to run.
	Filters []Filter
	// Handler processes the update.
	Handler Handler
}

// ModuleSpec declares everything a module contributes to the dispatcher.
type ModuleSpec struct {
	// Commands are registered as command handlers and catalog entries.
	Commands []ModuleCommand
	// Handlers are registered after Commands, in order.
	Handlers []ModuleHandler
	// Middleware wraps every handler of the module.
	Middleware []Middleware
}

// ModuleCommand binds a command declaration to its handler.
type ModuleCommand struct {
	Spec    CommandSpec
	Filters []Filter
	Handler Handler
}

// Module is a named unit of bot behavior registered on a Dispatcher.
type Module interface {
	// Name returns a stable module identifier.
	Name() string
	// Spec returns declarative handler metadata.
	Spec() ModuleSpec
}

// ModuleRuntime provides dispatcher facilities to modules during registration.
type ModuleRuntime interface {
	// Services exposes the service registry for dependency lookup.
	Services() *ServiceRegistry
	// Router is the module's own router; modules may add handlers imperatively.
	Router() *Router
}

// ModuleRegistrar is implemented by modules that resolve dependencies or add
// handlers at registration time.
type ModuleRegistrar interface {
	OnRegister(ctx context.Context, runtime ModuleRuntime) error
}

// ModuleStarter is implemented by modules that act on dispatcher startup.
type ModuleStarter interface {
	OnStart(ctx context.Context, bot *tgbotapi.BotAPI) error
}

// ModuleStopper is implemented by modules that act on dispatcher shutdown.
type ModuleStopper interface {
	OnShutdown(ctx context.Context, bot *tgbotapi.BotAPI) error
}

// CommandCatalog lists registered commands.
type CommandCatalog interface {
	// ListCommands returns registered commands sorted by name then router.
	ListCommands(ctx context.Context) ([]RegisteredCommand, error)
}

type moduleRuntime struct {
	services *ServiceRegistry
	router   *Router
}

func (r moduleRuntime) Services() *ServiceRegistry {
	return r.services
}

func (r moduleRuntime) Router() *Router {
	return r.router
}
