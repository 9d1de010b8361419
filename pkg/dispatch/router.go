package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"sync"
)

// Handler processes one routed update. Returned errors reach the caller of
// Dispatcher.FeedUpdate unchanged.
type Handler func(ctx context.Context, req *Request) error

// Middleware wraps a matched handler.
type Middleware func(next Handler) Handler

var commandNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// CommandSpec declares one bot command for discovery and the command menu.
type CommandSpec struct {
	// Name is the command without the leading slash.
	Name string
	// Description is the short text shown in menus and help output.
	Description string
}

// Validate checks the Bot API constraints on command names and descriptions.
func (s CommandSpec) Validate() error {
	if !commandNamePattern.MatchString(s.Name) {
		return fmt.Errorf("validate command %q: name must match %s", s.Name, commandNamePattern)
	}
	if s.Description == "" || len(s.Description) > 256 {
		return fmt.Errorf("validate command %q: description must be 1-256 characters", s.Name)
	}

	return nil
}

type route struct {
	kind    UpdateKind
	filters []Filter
	handler Handler
}

// Router groups handlers, their filters and middleware. Routers nest.
type Router struct {
	name string

	mu         sync.RWMutex
	routes     []route
	middleware []Middleware
	children   []*Router
	commands   []CommandSpec
}

// NewRouter creates an empty named router.
func NewRouter(name string) *Router {
	return &Router{name: name}
}

// Name returns the router name.
func (r *Router) Name() string {
	return r.name
}

// Handle registers handler for updates of kind accepted by all filters.
func (r *Router) Handle(kind UpdateKind, handler Handler, filters ...Filter) {
	if handler == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, route{
		kind:    kind,
		filters: append([]Filter(nil), filters...),
		handler: handler,
	})
}

// Message registers a message handler.
func (r *Router) Message(handler Handler, filters ...Filter) {
	r.Handle(UpdateMessage, handler, filters...)
}

// CallbackQuery registers a callback query handler.
func (r *Router) CallbackQuery(handler Handler, filters ...Filter) {
	r.Handle(UpdateCallbackQuery, handler, filters...)
}

// Command registers a message handler for spec.Name and records spec in the
// command catalog. Extra filters are applied after the command match.
func (r *Router) Command(spec CommandSpec, handler Handler, filters ...Filter) {
	if handler == nil {
		return
	}
	all := append([]Filter{Command(spec.Name)}, filters...)
	r.Handle(UpdateMessage, handler, all...)

	r.mu.Lock()
	r.commands = append(r.commands, spec)
	r.mu.Unlock()
}

// Use appends middleware wrapping every handler of this router and its children.
func (r *Router) Use(middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range middleware {
		if item != nil {
			r.middleware = append(r.middleware, item)
		}
	}
}

// IncludeRouter attaches child below r. Children are consulted after r's own
// handlers, in inclusion order.
func (r *Router) IncludeRouter(child *Router) error {
	if child == nil {
		return fmt.Errorf("include router: nil router")
	}
	if child == r || child.contains(r) {
		return fmt.Errorf("include router %s: cycle detected", child.name)
	}
	if r.contains(child) {
		return fmt.Errorf("include router %s: already included", child.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.children = append(r.children, child)

	return nil
}

// RegisteredCommand describes one command together with the router that owns it.
type RegisteredCommand struct {
	// RouterName identifies the router (module) that registered the command.
	RouterName string
	// Command is the registered command specification.
	Command CommandSpec
}

// commandsTo appends r's commands and its children's in depth-first order.
func (r *Router) commandsTo(out []RegisteredCommand) []RegisteredCommand {
	r.mu.RLock()
	commands := append([]CommandSpec(nil), r.commands...)
	children := append([]*Router(nil), r.children...)
	r.mu.RUnlock()

	for _, command := range commands {
		out = append(out, RegisteredCommand{RouterName: r.name, Command: command})
	}
	for _, child := range children {
		out = child.commandsTo(out)
	}

	return out
}

func (r *Router) contains(target *Router) bool {
	r.mu.RLock()
	children := append([]*Router(nil), r.children...)
	r.mu.RUnlock()

	for _, child := range children {
		if child == target || child.contains(target) {
			return true
		}
	}

	return false
}

// resolve returns the first handler accepting req, wrapped by the middleware
// of every router on the path from r.
func (r *Router) resolve(ctx context.Context, req *Request) (Handler, bool) {
	r.mu.RLock()
	routes := append([]route(nil), r.routes...)
	middleware := append([]Middleware(nil), r.middleware...)
	children := append([]*Router(nil), r.children...)
	r.mu.RUnlock()

	for _, candidate := range routes {
		if candidate.kind != req.kind {
			continue
		}
		if matchAll(ctx, req, candidate.filters) {
			return chain(middleware, candidate.handler), true
		}
	}
	for _, child := range children {
		if handler, ok := child.resolve(ctx, req); ok {
			return chain(middleware, handler), true
		}
	}

	return nil, false
}

// chain applies middleware so that middleware[0] runs outermost.
func chain(middleware []Middleware, handler Handler) Handler {
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		handler = middleware[idx](handler)
	}

	return handler
}
