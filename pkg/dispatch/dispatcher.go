package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// LifecycleHook runs on dispatcher startup or shutdown.
type LifecycleHook func(ctx context.Context, bot *tgbotapi.BotAPI) error

type namedHook struct {
	name string
	hook LifecycleHook
}

// Dispatcher routes updates through a tree of routers, keeps conversation
// state and runs lifecycle hooks. The embedded Router is the root router.
type Dispatcher struct {
	*Router

	cfg      config
	services *ServiceRegistry
	storage  Storage

	registerMu sync.Mutex

	mu            sync.RWMutex
	modules       map[string]Module
	moduleOrder   []string
	startupHooks  []namedHook
	shutdownHooks []namedHook
}

// New creates a dispatcher with an empty root router.
func New(options ...Option) *Dispatcher {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	storage := cfg.storage
	if storage == nil {
		storage = NewMemoryStorage()
	}

	dispatcher := &Dispatcher{
		Router:      NewRouter("root"),
		cfg:         cfg,
		services:    NewServiceRegistry(),
		storage:     storage,
		modules:     make(map[string]Module),
		moduleOrder: make([]string, 0),
	}
	if err := dispatcher.services.Register(
		ServiceCommandCatalog,
		&dispatcherCommandCatalog{dispatcher: dispatcher},
	); err != nil {
		cfg.logger.Error("dispatch register command catalog", "error", err)
	}

	return dispatcher
}

// Services exposes the dispatcher service registry.
func (d *Dispatcher) Services() *ServiceRegistry {
	return d.services
}

// Storage exposes the conversation state storage.
func (d *Dispatcher) Storage() Storage {
	return d.storage
}

// RegisterService registers a runtime service singleton.
func (d *Dispatcher) RegisterService(name string, service any) error {
	if err := d.services.Register(name, service); err != nil {
		return fmt.Errorf("register service %s: %w", name, err)
	}

	return nil
}

// OnStartup appends a startup hook. Hooks run in registration order.
func (d *Dispatcher) OnStartup(hook LifecycleHook) {
	d.addHook(&d.startupHooks, "startup hook", hook)
}

// OnShutdown appends a shutdown hook. Hooks run in reverse registration order.
func (d *Dispatcher) OnShutdown(hook LifecycleHook) {
	d.addHook(&d.shutdownHooks, "shutdown hook", hook)
}

func (d *Dispatcher) addHook(hooks *[]namedHook, prefix string, hook LifecycleHook) {
	if hook == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	name := fmt.Sprintf("%s %d", prefix, len(*hooks))
	*hooks = append(*hooks, namedHook{name: name, hook: hook})
}

// RegisterModule validates and registers a module: its commands and handlers
// go into a router named after the module, OnRegister runs, and lifecycle
// hooks are attached.
func (d *Dispatcher) RegisterModule(ctx context.Context, module Module) error {
	if module == nil {
		return fmt.Errorf("register module: nil module")
	}
	name := module.Name()
	if name == "" {
		return fmt.Errorf("register module: empty module name")
	}

	d.registerMu.Lock()
	defer d.registerMu.Unlock()

	d.mu.RLock()
	_, exists := d.modules[name]
	d.mu.RUnlock()
	if exists {
		return fmt.Errorf("register module %s: %w", name, ErrModuleAlreadyRegistered)
	}

	spec := module.Spec()
	if err := validateModuleSpec(spec); err != nil {
		return fmt.Errorf("register module %s: %w", name, err)
	}
	if err := d.checkCommandConflicts(spec.Commands); err != nil {
		return fmt.Errorf("register module %s: %w", name, err)
	}

	router := NewRouter(name)
	router.Use(spec.Middleware...)
	for _, command := range spec.Commands {
		router.Command(command.Spec, command.Handler, command.Filters...)
	}
	for _, handler := range spec.Handlers {
		router.Handle(handler.Kind, handler.Handler, handler.Filters...)
	}

	if registrar, ok := module.(ModuleRegistrar); ok {
		hookCtx, cancel := context.WithTimeout(ctx, d.cfg.hookTimeout)
		err := runSafely("module "+name+" OnRegister", func() error {
			return registrar.OnRegister(hookCtx, moduleRuntime{services: d.services, router: router})
		})
		cancel()
		if err != nil {
			return fmt.Errorf("register module %s: %w", name, err)
		}
	}

	if err := d.Router.IncludeRouter(router); err != nil {
		return fmt.Errorf("register module %s: %w", name, err)
	}

	d.mu.Lock()
	d.modules[name] = module
	d.moduleOrder = append(d.moduleOrder, name)
	if starter, ok := module.(ModuleStarter); ok {
		d.startupHooks = append(d.startupHooks, namedHook{name: "module " + name + " OnStart", hook: starter.OnStart})
	}
	if stopper, ok := module.(ModuleStopper); ok {
		d.shutdownHooks = append(d.shutdownHooks, namedHook{name: "module " + name + " OnShutdown", hook: stopper.OnShutdown})
	}
	d.mu.Unlock()

	return nil
}

// Modules returns registered module names in registration order.
func (d *Dispatcher) Modules() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]string(nil), d.moduleOrder...)
}

// Commands returns every command registered in the router tree, sorted by
// name then router.
func (d *Dispatcher) Commands() []RegisteredCommand {
	commands := d.Router.commandsTo(nil)
	sort.SliceStable(commands, func(i, j int) bool {
		if commands[i].Command.Name == commands[j].Command.Name {
			return commands[i].RouterName < commands[j].RouterName
		}
		return commands[i].Command.Name < commands[j].Command.Name
	})

	return commands
}

func (d *Dispatcher) checkCommandConflicts(commands []ModuleCommand) error {
	existing := make(map[string]string)
	for _, registered := range d.Router.commandsTo(nil) {
		existing[registered.Command.Name] = registered.RouterName
	}

	seen := make(map[string]struct{}, len(commands))
	for _, command := range commands {
		if owner, taken := existing[command.Spec.Name]; taken {
			return fmt.Errorf("command /%s owned by %s: %w", command.Spec.Name, owner, ErrCommandAlreadyRegistered)
		}
		if _, dup := seen[command.Spec.Name]; dup {
			return fmt.Errorf("command /%s declared twice: %w", command.Spec.Name, ErrCommandAlreadyRegistered)
		}
		seen[command.Spec.Name] = struct{}{}
	}

	return nil
}

func validateModuleSpec(spec ModuleSpec) error {
	for _, command := range spec.Commands {
		if err := command.Spec.Validate(); err != nil {
			return err
		}
		if command.Handler == nil {
			return fmt.Errorf("command /%s: nil handler", command.Spec.Name)
		}
	}
	for idx, handler := range spec.Handlers {
		if handler.Handler == nil {
			return fmt.Errorf("handler %d: nil handler", idx)
		}
		switch handler.Kind {
		case UpdateMessage, UpdateCallbackQuery:
		default:
			return fmt.Errorf("handler %d: unsupported update kind %q", idx, handler.Kind)
		}
	}

	return nil
}

// EmitStartup runs startup hooks in registration order, each bounded by the
// hook timeout. The first failing hook aborts startup.
func (d *Dispatcher) EmitStartup(ctx context.Context, bot *tgbotapi.BotAPI) error {
	d.mu.RLock()
	hooks := append([]namedHook(nil), d.startupHooks...)
	d.mu.RUnlock()

	for _, hook := range hooks {
		hookCtx, cancel := context.WithTimeout(ctx, d.cfg.hookTimeout)
		err := runSafely(hook.name, func() error {
			return hook.hook(hookCtx, bot)
		})
		cancel()
		if err != nil {
			d.cfg.logger.ErrorContext(ctx, "dispatch startup failed", "hook", hook.name, "error", err)
			return fmt.Errorf("emit startup: %w", err)
		}
	}

	return nil
}

// EmitShutdown runs shutdown hooks in reverse registration order and closes
// the state storage. It keeps going after failures and joins their errors.
// Cleanup still runs after ctx cancellation, bounded by the shutdown timeout.
func (d *Dispatcher) EmitShutdown(ctx context.Context, bot *tgbotapi.BotAPI) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.shutdownTimeout)
	defer cancel()

	d.mu.RLock()
	hooks := append([]namedHook(nil), d.shutdownHooks...)
	d.mu.RUnlock()

	var shutdownErr error
	for idx := len(hooks) - 1; idx >= 0; idx-- {
		hook := hooks[idx]
		hookCtx, hookCancel := context.WithTimeout(shutdownCtx, d.cfg.hookTimeout)
		err := runSafely(hook.name, func() error {
			return hook.hook(hookCtx, bot)
		})
		hookCancel()
		if err != nil {
			d.cfg.logger.ErrorContext(ctx, "dispatch shutdown hook failed", "hook", hook.name, "error", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}
	if err := d.storage.Close(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close storage: %w", err))
	}

	if shutdownErr != nil {
		return fmt.Errorf("emit shutdown: %w", shutdownErr)
	}

	return nil
}

// FeedUpdate routes one update synchronously. Errors returned by the matched
// handler are passed through unchanged; an update no handler accepts is not
// an error.
func (d *Dispatcher) FeedUpdate(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
	kind, ok := updateKind(update)
	if !ok {
		return fmt.Errorf("feed update %d: %w", update.UpdateID, ErrUnsupportedUpdate)
	}

	key := routingKey(update)
	state, err := d.storage.State(ctx, key)
	if err != nil {
		return fmt.Errorf("feed update %d: load state: %w", update.UpdateID, err)
	}

	logger := d.cfg.logger.With("update_id", update.UpdateID)
	req := &Request{
		Bot:      bot,
		Update:   update,
		kind:     kind,
		state:    state,
		fsm:      NewStateContext(d.storage, key),
		services: d.services,
		logger:   logger,
	}

	handler, matched := d.Router.resolve(ctx, req)
	if !matched {
		logger.DebugContext(ctx, "dispatch update not handled", "kind", kind, "chat_id", key.ChatID)
		return nil
	}

	return handler(ctx, req)
}

func updateKind(update tgbotapi.Update) (UpdateKind, bool) {
	switch {
	case update.Message != nil:
		return UpdateMessage, true
	case update.CallbackQuery != nil:
		return UpdateCallbackQuery, true
	default:
		return "", false
	}
}

// routingKey derives the conversation key of an update.
func routingKey(update tgbotapi.Update) StorageKey {
	var key StorageKey
	switch {
	case update.Message != nil:
		message := update.Message
		if message.From != nil {
			key.UserID = message.From.ID
		}
		if message.Chat != nil {
			key.ChatID = message.Chat.ID
		} else {
			key.ChatID = key.UserID
		}
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.From != nil {
			key.UserID = query.From.ID
		}
		if query.Message != nil && query.Message.Chat != nil {
			key.ChatID = query.Message.Chat.ID
		} else {
			key.ChatID = key.UserID
		}
	}

	return key
}

// dispatcherCommandCatalog exposes the dispatcher command tree through ServiceRegistry.
type dispatcherCommandCatalog struct {
	dispatcher *Dispatcher
}

// ListCommands returns all registered command entries sorted by name then router.
func (c *dispatcherCommandCatalog) ListCommands(ctx context.Context) ([]RegisteredCommand, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	if c == nil || c.dispatcher == nil {
		return nil, fmt.Errorf("list commands: nil catalog")
	}

	return c.dispatcher.Commands(), nil
}

var _ CommandCatalog = (*dispatcherCommandCatalog)(nil)
