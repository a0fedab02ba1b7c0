package ticket

import (
	"context"
	"sort"
)

// CommandHandler executes one slash command interaction.
type CommandHandler func(ctx context.Context, ev *Event) error

// Registry maps command names to handlers. It is an explicitly
// constructed value passed into the Router at startup, not a process-wide
// singleton; tests build their own.
type Registry struct {
	handlers map[string]CommandHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]CommandHandler)}
}

func (r *Registry) Register(name string, handler CommandHandler) {
	r.handlers[name] = handler
}

func (r *Registry) Lookup(name string) (CommandHandler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
